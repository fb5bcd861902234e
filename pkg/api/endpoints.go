package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hazyhaar/voxsearch/pkg/dataset"
	"github.com/hazyhaar/voxsearch/pkg/kit"
	"github.com/hazyhaar/voxsearch/pkg/match"
	"github.com/hazyhaar/voxsearch/pkg/textnorm"
	"github.com/hazyhaar/voxsearch/pkg/voice"
)

// ErrInvalidRequest marks client errors (bad arguments, empty inputs).
var ErrInvalidRequest = errors.New("invalid request")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// statusFor maps endpoint errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, dataset.ErrDatasetNotFound), errors.Is(err, voice.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, voice.ErrPermissionDenied):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// Deps are the services shared by the HTTP and MCP transports.
type Deps struct {
	Registry       *dataset.Registry
	Sessions       *voice.Manager
	DefaultDataset string
	Logger         *slog.Logger
}

// Shared request/response types used by both HTTP and MCP transports.

type searchReq struct {
	Dataset string
	Query   string
}

type normalizeReq struct {
	Text string
	Mode string
}

type normalizeResponse struct {
	Input      string   `json:"input"`
	Normalized string   `json:"normalized"`
	Words      []string `json:"words"`
}

type matchReq struct {
	Candidate string `json:"candidate"`
	Query     string `json:"query"`
	Mode      string `json:"mode,omitempty"`
}

type matchResponse struct {
	Matches   bool   `json:"matches"`
	Candidate string `json:"normalized_candidate"`
	Query     string `json:"normalized_query"`
}

type datasetsResponse struct {
	Datasets []dataset.DatasetInfo `json:"datasets"`
}

type createSessionReq struct {
	Dataset string `json:"dataset"`
}

type sessionReq struct {
	ID string
}

type setQueryReq struct {
	ID    string
	Query string
}

type toggleReq struct {
	ID         string
	Authorized bool
}

type eventReq struct {
	ID    string
	Event voice.Event
}

type eventResponse struct {
	Applied bool           `json:"applied"`
	Session voice.Snapshot `json:"session"`
}

type endpoints struct {
	search        kit.Endpoint
	normalize     kit.Endpoint
	match         kit.Endpoint
	listDatasets  kit.Endpoint
	createSession kit.Endpoint
	getSession    kit.Endpoint
	deleteSession kit.Endpoint
	setQuery      kit.Endpoint
	toggle        kit.Endpoint
	event         kit.Endpoint
}

// newEndpoints builds every endpoint wrapped with request ids and logging.
func newEndpoints(d Deps) *endpoints {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.DefaultDataset == "" {
		d.DefaultDataset = dataset.BuiltinID
	}
	wrap := func(name string, ep kit.Endpoint) kit.Endpoint {
		return kit.Chain(kit.RequestID(), kit.Logging(d.Logger, name))(ep)
	}
	return &endpoints{
		search:        wrap("search", searchEndpoint(d)),
		normalize:     wrap("normalize", normalizeEndpoint()),
		match:         wrap("match", matchEndpoint()),
		listDatasets:  wrap("list_datasets", listDatasetsEndpoint(d.Registry)),
		createSession: wrap("create_session", createSessionEndpoint(d)),
		getSession:    wrap("get_session", getSessionEndpoint(d.Sessions)),
		deleteSession: wrap("delete_session", deleteSessionEndpoint(d.Sessions)),
		setQuery:      wrap("set_query", setQueryEndpoint(d.Sessions)),
		toggle:        wrap("toggle", toggleEndpoint(d.Sessions)),
		event:         wrap("event", eventEndpoint(d.Sessions)),
	}
}

func searchEndpoint(d Deps) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*searchReq)
		id := req.Dataset
		if id == "" {
			id = d.DefaultDataset
		}
		return d.Registry.Search(id, req.Query)
	}
}

func normalizeEndpoint() kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*normalizeReq)
		normalized := textnorm.Get(req.Mode)(req.Text)
		words := textnorm.Words(normalized)
		if words == nil {
			words = []string{}
		}
		return normalizeResponse{Input: req.Text, Normalized: normalized, Words: words}, nil
	}
}

func matchEndpoint() kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*matchReq)
		if req.Candidate == "" {
			return nil, invalid("candidate is empty")
		}
		m := match.New(req.Mode)
		return matchResponse{
			Matches:   m.Matches(req.Candidate, req.Query),
			Candidate: m.Query(req.Candidate).Normalized(),
			Query:     m.Query(req.Query).Normalized(),
		}, nil
	}
}

func listDatasetsEndpoint(reg *dataset.Registry) kit.Endpoint {
	return func(_ context.Context, _ any) (any, error) {
		return datasetsResponse{Datasets: reg.ListDatasets()}, nil
	}
}

func createSessionEndpoint(d Deps) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*createSessionReq)
		id := req.Dataset
		if id == "" {
			id = d.DefaultDataset
		}
		s, err := d.Sessions.Create(id, voice.External{})
		if err != nil {
			return nil, err
		}
		return s.Snapshot(), nil
	}
}

func getSessionEndpoint(mgr *voice.Manager) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		s, err := mgr.Get(request.(*sessionReq).ID)
		if err != nil {
			return nil, err
		}
		return s.Snapshot(), nil
	}
}

func deleteSessionEndpoint(mgr *voice.Manager) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		return nil, mgr.Delete(request.(*sessionReq).ID)
	}
}

func setQueryEndpoint(mgr *voice.Manager) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*setQueryReq)
		s, err := mgr.Get(req.ID)
		if err != nil {
			return nil, err
		}
		return s.SetQuery(req.Query), nil
	}
}

func toggleEndpoint(mgr *voice.Manager) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*toggleReq)
		s, err := mgr.Get(req.ID)
		if err != nil {
			return nil, err
		}
		return s.Toggle(voice.WithAuthorization(ctx, req.Authorized))
	}
}

func eventEndpoint(mgr *voice.Manager) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*eventReq)
		if !req.Event.Kind.Valid() {
			return nil, invalid("unknown event type %q", req.Event.Kind)
		}
		s, err := mgr.Get(req.ID)
		if err != nil {
			return nil, err
		}
		applied := s.Dispatch(req.Event)
		return eventResponse{Applied: applied, Session: s.Snapshot()}, nil
	}
}
