package query

// ErrorListener receives compilation errors. BeforeCompilation is called
// once before any error is reported and AfterCompilation once at the end,
// whether or not compilation succeeded.
type ErrorListener interface {
	BeforeCompilation()
	ReportError(line, column int, message string)
	AfterCompilation()
}

// ErrorList is an ErrorListener that collects errors. It is reset by
// BeforeCompilation so one list can be reused across compilations.
type ErrorList struct {
	Errors []*SyntaxError
}

func (l *ErrorList) BeforeCompilation() { l.Errors = nil }

func (l *ErrorList) ReportError(line, column int, message string) {
	l.Errors = append(l.Errors, &SyntaxError{Line: line, Column: column, Message: message})
}

func (l *ErrorList) AfterCompilation() {}

// Err returns the first collected error, or nil.
func (l *ErrorList) Err() error {
	if len(l.Errors) == 0 {
		return nil
	}
	return l.Errors[0]
}

type nopListener struct{}

func (nopListener) BeforeCompilation()           {}
func (nopListener) ReportError(int, int, string) {}
func (nopListener) AfterCompilation()            {}
