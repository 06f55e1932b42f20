package models

// Classification is the output of the classifier, produced once per task
// and read-only thereafter.
type Classification struct {
	Domain     Domain   `json:"domain"`
	Confidence float64  `json:"confidence"`
	Reasons    []string `json:"reasons"`
}
