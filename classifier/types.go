package classifier

import "classifier_backend/vision"

// Candidate is one ranked prediction.
type Candidate struct {
	ClassID     int     `json:"class_id"`
	Probability float32 `json:"probability"`
}

// CandidateList is ordered by descending probability, then ascending ClassID.
type CandidateList []Candidate

// ClassIDs returns the class ids in order.
func (l CandidateList) ClassIDs() []int {
	ids := make([]int, len(l))
	for i, c := range l {
		ids[i] = c.ClassID
	}
	return ids
}

// Info describes a loaded classifier.
type Info struct {
	Classes      int           `json:"classes"`
	Top          int           `json:"top"`
	Outputs      int           `json:"outputs"`
	Width        int           `json:"width"`
	Height       int           `json:"height"`
	Channels     int           `json:"channels"`
	Hierarchical bool          `json:"hierarchical"`
	LabelsPath   string        `json:"labels_path"`
	Filter       vision.Filter `json:"filter"`
}
