package roster

// Aliases maps a known alternate column header to its canonical name.
// Matching is exact and case-sensitive.
type Aliases map[string]string

// AppAliases is the default rename table.
var AppAliases = Aliases{
	"OOPS C++":                        "OOPs C++",
	"OOP C++":                         "OOPs C++",
	"Object Oriented Programming C++": "OOPs C++",
	"DSA CPP":                         "DSA C++",
	"DSA in C++":                      "DSA C++",
	"Applied data science":            "Applied Data Science",
	"Applied DataScience":             "Applied Data Science",
	"Embedded System":                 "Embedded Systems",
	"Embeded system":                  "Embedded Systems",
	"Cloud Mgmt":                      "Cloud Management",
	"CloudMgmt":                       "Cloud Management",
}

// LegacyAliases is the older rename table. Unlike AppAliases it also knows the
// common spellings of the registration number column.
var LegacyAliases = Aliases{
	"OOPS C++":             "OOPs C++",
	"OOPs CPP":             "OOPs C++",
	"DSA CPP":              "DSA C++",
	"Applied data science": "Applied Data Science",
	"Embedded System":      "Embedded Systems",
	"Cloud Mgmt":           "Cloud Management",
	"Reg No":               ColRegNo,
	"Reg_No":               ColRegNo,
	"Registration No":      ColRegNo,
}

// MergedAliases is the union of AppAliases and LegacyAliases.
func MergedAliases() Aliases {
	merged := make(Aliases, len(AppAliases)+len(LegacyAliases))
	for k, v := range LegacyAliases {
		merged[k] = v
	}
	for k, v := range AppAliases {
		merged[k] = v
	}
	return merged
}

// LookupAliases resolves a table by name: "app", "legacy" or "merged".
func LookupAliases(name string) (Aliases, bool) {
	switch name {
	case "", "app":
		return AppAliases, true
	case "legacy":
		return LegacyAliases, true
	case "merged":
		return MergedAliases(), true
	}
	return nil, false
}

func (a Aliases) Canonical(column string) string {
	if c, ok := a[column]; ok {
		return c
	}
	return column
}
