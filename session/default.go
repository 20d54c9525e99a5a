package session

import "classifier_backend/classifier"

// Default is the process-wide Manager behind the package-level functions.
// The C library drives it; call Configure before the first Init.
var Default = NewManager()

// Configure applies opts to Default.
func Configure(opts ...Option) {
	Default.Configure(opts...)
}

// Init loads a classifier into Default.
func Init(dataConfigPath, networkConfigPath, weightsPath string) error {
	return Default.Init(dataConfigPath, networkConfigPath, weightsPath)
}

// Predict classifies the image at path with Default.
func Predict(path string, top int) (classifier.CandidateList, error) {
	return Default.Predict(path, top)
}

// PredictBytes classifies an in-memory image with Default.
func PredictBytes(data []byte, top int) (classifier.CandidateList, error) {
	return Default.PredictBytes(data, top)
}

// PredictInto classifies the image at path with Default into buf.
func PredictInto(path string, buf *ResultBuffer, top int) (int, bool, error) {
	return Default.PredictInto(path, buf, top)
}

// PredictBytesInto classifies an in-memory image with Default into buf.
func PredictBytesInto(data []byte, buf *ResultBuffer, top int) (int, bool, error) {
	return Default.PredictBytesInto(data, buf, top)
}

// ClassName looks up a class name in Default.
func ClassName(id int) (string, error) {
	return Default.ClassName(id)
}

// ClassNameInto copies a class name from Default into buf.
func ClassNameInto(id int, buf []byte) (int, error) {
	return Default.ClassNameInto(id, buf)
}

// Dispose closes the classifier held by Default.
func Dispose() {
	Default.Dispose()
}
