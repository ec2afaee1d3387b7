package facility

// List is the fixed set of bookable facilities.
var List = []string{
	"Multi-Purpose Hall",
	"Basketball Court",
	"Football Field",
	"Swimming Pool",
}

// IsValid reports whether name is one of the bookable facilities.
func IsValid(name string) bool {
	for _, f := range List {
		if f == name {
			return true
		}
	}
	return false
}

// KeyboardRows groups the facility list into rows of three for choice keyboards.
func KeyboardRows() [][]string {
	var rows [][]string
	for i := 0; i < len(List); i += 3 {
		end := i + 3
		if end > len(List) {
			end = len(List)
		}
		rows = append(rows, List[i:end])
	}
	return rows
}
