package web

// FormData carries field errors and submitted values back into a
// re-rendered form so the user does not lose their input.
type FormData struct {
	Errors map[string]string
	Values map[string]string
}

func newFormData() FormData {
	return FormData{
		Errors: map[string]string{},
		Values: map[string]string{},
	}
}
