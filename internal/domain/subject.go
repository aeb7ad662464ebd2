package domain

// Subject is a controlled-vocabulary entry attached to items and coverages.
type Subject struct {
	QCode  string `json:"qcode"`
	Name   string `json:"name"`
	Scheme string `json:"scheme,omitempty"`
}

// Genre is a content genre reference.
type Genre struct {
	QCode string `json:"qcode"`
	Name  string `json:"name"`
}

// HasSubject reports whether subjects contain the scheme/qcode pair.
func HasSubject(subjects []Subject, scheme, qcode string) bool {
	for _, s := range subjects {
		if s.Scheme == scheme && s.QCode == qcode {
			return true
		}
	}
	return false
}

// HasSubjectName reports whether a subject with the given name is present.
func HasSubjectName(subjects []Subject, name string) bool {
	for _, s := range subjects {
		if s.Name == name {
			return true
		}
	}
	return false
}

// VocabularyItem is a single entry of a controlled vocabulary.
type VocabularyItem struct {
	QCode    string `json:"qcode"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

// Vocabulary is a named list of controlled values.
type Vocabulary struct {
	ID    string           `json:"_id"`
	Items []VocabularyItem `json:"items"`
}
