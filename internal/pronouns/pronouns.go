// Package pronouns holds the pronoun grammar table and the remote lookup
// against the Alejo pronoun service.
package pronouns

import "strings"

// Set is an immutable pronoun grammar record. Compare with ==.
type Set struct {
	Display           string
	Subject           string
	Object            string
	Possessive        string
	PossessivePronoun string
	Reflexive         string
	PastTense         string
	CurrentTense      string
	Plural            bool
}

func (s Set) SubjectLower() string { return strings.ToLower(s.Subject) }
func (s Set) ObjectLower() string  { return strings.ToLower(s.Object) }

// IsZero reports whether s carries no grammar at all.
func (s Set) IsZero() bool { return s == Set{} }

var (
	TheyThem = Set{"They/Them", "They", "Them", "Their", "Theirs", "Themself", "Were", "Are", true}
	HeHim    = Set{"He/Him", "He", "Him", "His", "His", "Himself", "Was", "Is", false}
	SheHer   = Set{"She/Her", "She", "Her", "Her", "Hers", "Herself", "Was", "Is", false}
	XeXem    = Set{"Xe/Xem", "Xe", "Xem", "Xyr", "Xyrs", "Xemself", "Was", "Is", false}
	ItIts    = Set{"It/Its", "It", "It", "Its", "Its", "Itself", "Was", "Is", false}
	AeAer    = Set{"Ae/Aer", "Ae", "Aer", "Aer", "Aers", "Aerself", "Was", "Is", false}
	EEm      = Set{"E/Em", "E", "Em", "Eir", "Eirs", "Emself", "Was", "Is", false}
	FaeFaer  = Set{"Fae/Faer", "Fae", "Faer", "Faer", "Faers", "Faerself", "Was", "Is", false}
	PerPer   = Set{"Per/Per", "Per", "Per", "Per", "Pers", "Perself", "Was", "Is", false}
	VeVer    = Set{"Ve/Ver", "Ve", "Ver", "Vis", "Vis", "Verself", "Was", "Is", false}
	ZieHir   = Set{"Zie/Hir", "Zie", "Hir", "Hir", "Hirs", "Hirself", "Was", "Is", false}
	HeThey   = Set{"He/They", "He", "Him", "His", "His", "Himself", "Was", "Is", false}
	SheThey  = Set{"She/They", "She", "Her", "Her", "Hers", "Herself", "Was", "Is", false}
	HeShe    = Set{"He/She", "He", "Him", "His", "His", "Himself", "Was", "Is", false}
	Any      = Set{"Any", "They", "Them", "Their", "Theirs", "Themself", "Were", "Are", true}
	Other    = Set{"Other", "They", "Them", "Their", "Theirs", "Themself", "Were", "Are", true}
)

// Default is used whenever no pronouns are known.
var Default = TheyThem

var byID = map[string]Set{
	"theythem": TheyThem,
	"hehim":    HeHim,
	"sheher":   SheHer,
	"xexem":    XeXem,
	"itits":    ItIts,
	"aeaer":    AeAer,
	"eem":      EEm,
	"faefaer":  FaeFaer,
	"perper":   PerPer,
	"vever":    VeVer,
	"ziehir":   ZieHir,
	"hethem":   HeThey,
	"shethem":  SheThey,
	"heshe":    HeShe,
	"any":      Any,
	"other":    Other,
}

// MapFromID maps an Alejo pronoun identifier to its grammar. Unknown
// identifiers map to Default.
func MapFromID(id string) Set {
	if s, ok := byID[strings.ToLower(strings.TrimSpace(id))]; ok {
		return s
	}
	return Default
}

// Known reports whether id is in the table.
func Known(id string) bool {
	_, ok := byID[strings.ToLower(strings.TrimSpace(id))]
	return ok
}
