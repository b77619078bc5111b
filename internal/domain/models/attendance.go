// internal/domain/models/attendance.go
package models

// AttendanceEntry is one bar of the class attendance chart.
type AttendanceEntry struct {
	StudentName          string  `json:"studentName"`
	AttendancePercentage float64 `json:"attendancePercentage"`
}

// ClassSheet identifies a class attendance sheet on the backend.
type ClassSheet struct {
	Name  string // value sent as classSheet, e.g. "Class3"
	Label string // button text, e.g. "C3"
	Color string // button colour
}

// ClassSheets is the fixed list of classes offered on the welcome page.
var ClassSheets = []ClassSheet{
	{Name: "Class1", Label: "C1", Color: "#FF5733"},
	{Name: "Class2", Label: "C2", Color: "#33FF57"},
	{Name: "Class3", Label: "C3", Color: "#3357FF"},
	{Name: "Class4", Label: "C4", Color: "#FF33A1"},
	{Name: "Class5", Label: "C5", Color: "#FFD433"},
	{Name: "Class6", Label: "C6", Color: "#33D4FF"},
	{Name: "Class7", Label: "C7", Color: "#FF8C33"},
	{Name: "Class8", Label: "C8", Color: "#33FFDD"},
	{Name: "Class9", Label: "C9", Color: "#F333FF"},
	{Name: "Class10", Label: "C10", Color: "#FF3357"},
}

// LookupClassSheet finds a class by its sheet name.
func LookupClassSheet(name string) (ClassSheet, bool) {
	for _, c := range ClassSheets {
		if c.Name == name {
			return c, true
		}
	}
	return ClassSheet{}, false
}
