// Package engine loads classification networks and runs their forward pass.
//
// A network is described by a small YAML document (the network config) and a
// weights artifact. The descriptor selects the backend:
//
//   - dense (default): a pure Go fully connected layer backed by
//     gorgonia.org/tensor. The weights file holds little-endian float32
//     values, outputs*inputs weights followed by outputs biases.
//   - onnx: an ONNX model run through onnxruntime. Requires building with
//     the "onnx" tag and the onnxruntime shared library:
//
//	CGO_ENABLED=1 go build -tags onnx
//
// # Descriptor
//
//	backend: dense
//	width: 224
//	height: 224
//	channels: 3
//	outputs: 1000
//	softmax: true
//	tree: imagenet.tree   # optional label hierarchy, relative to the descriptor
//	mean: [0.485, 0.456, 0.406]
//	std: [0.229, 0.224, 0.225]
//
// # Handles
//
// Every loaded network owns exactly one handle. Close releases it once;
// further calls are no-ops. HandleStats reports process-wide acquire and
// release counts so callers can verify nothing leaks.
package engine
