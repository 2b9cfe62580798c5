package core

const (
	ColCLUES                = "CLUES"
	ColFacilityMunicipality = "Nombre Municipio Loc"
	ColFacilityType         = "Tipo Casa Salud"
	ColAuxiliary            = "Auxiliar de Salud"
	ColMidwives             = "Parteras"

	// DefaultCLUESPrefix selects facilities run by the state health secretariat.
	DefaultCLUESPrefix = "HGSSA"
)

// FacilityType is the display information for a health-house type code.
type FacilityType struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

var facilityTypes = map[string]FacilityType{
	"AE":  {Code: "AE", Name: "Adaptada Equipada", Color: "#4e79a7"},
	"ASE": {Code: "ASE", Name: "Adaptada sin Equipar", Color: "#f28e2b"},
	"CE":  {Code: "CE", Name: "Construida Equipada", Color: "#e15759"},
	"CSE": {Code: "CSE", Name: "Construida sin Equipar", Color: "#76b7b2"},
}

// DefaultFacilityColor is used for type codes without a mapping entry.
const DefaultFacilityColor = "#bab0ac"

// LookupFacilityType returns the display info for code. Unknown codes pass
// through as their own name.
func LookupFacilityType(code string) FacilityType {
	if ft, ok := facilityTypes[code]; ok {
		return ft
	}
	return FacilityType{Code: code, Name: code, Color: DefaultFacilityColor}
}
