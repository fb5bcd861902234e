package dataset

// BuiltinID is the ID of the in-memory materials catalogue.
const BuiltinID = "materials"

var builtinRecords = []string{
	"MuuchStac Growth Pure",
	"10 mm tempered glass",
	"1600A TP ACB Draw Out Type",
	"1.2mm RR Electrical Case",
	"10 A Single Pole MCB Switch Gear",
	"DM0000011",
	"DM0000012",
	"2.5 sq mm FR PVC Copper Wire",
	"4 Way SPN Distribution Board",
	"20 mm PVC Conduit Pipe",
	"6 mm Clear Float Glass",
	"32 A Double Pole RCCB",
	"Cement OPC 53 Grade",
	"12 mm TMT Steel Bar",
	"LED Panel Light 18W Cool White",
}

// Builtin returns the fixed materials dataset compiled into the binary.
// Each call returns a fresh Dataset; the record list itself never changes.
func Builtin() *Dataset {
	return New(&Manifest{
		ID:          BuiltinID,
		Version:     "1",
		Description: "Built-in materials catalogue",
		Source:      "builtin",
		License:     "CC0",
		DataFile:    "-",
	}, builtinRecords)
}
