package session

import "errors"

// MultiRecorder fans a prediction out to every recorder in order. All
// recorders are called; their errors are joined. Failures go to the
// recorders that implement FailureRecorder.
func MultiRecorder(recorders ...Recorder) Recorder {
	var rs multiRecorder
	for _, r := range recorders {
		if r != nil {
			rs = append(rs, r)
		}
	}
	return rs
}

type multiRecorder []Recorder

func (rs multiRecorder) RecordPrediction(p Prediction) error {
	var errs []error
	for _, r := range rs {
		if err := r.RecordPrediction(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (rs multiRecorder) RecordFailure(f Failure) {
	for _, r := range rs {
		if fr, ok := r.(FailureRecorder); ok {
			fr.RecordFailure(f)
		}
	}
}
