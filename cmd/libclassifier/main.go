// Command libclassifier builds the classifier as a C shared library:
//
//	go build -buildmode=c-shared -o libclassifier.so ./cmd/libclassifier
//
// The exported functions live in exports.go and need cgo.
package main

func main() {}
