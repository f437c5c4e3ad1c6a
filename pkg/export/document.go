package export

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// Section is a titled table inside a document.
type Section struct {
	Title string
	Data  Dataset
}

// Document is a multi-section export with footer lines printed after the
// content (CSV) or at the bottom of every page (PDF).
type Document struct {
	Title    string
	Sections []Section
	Footer   []string
}
