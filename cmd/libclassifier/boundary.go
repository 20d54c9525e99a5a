//go:build cgo

package main

/*
#include <stdlib.h>
#include <string.h>
#include "classifier.h"
*/
import "C"

import "unsafe"

// The helpers below drive the exported entry points with Go types, the way
// a C caller would: C-allocated strings, containers and name buffers.

// container is a C-allocated classifier_t_container. The zero value stands
// for a NULL container.
type container struct {
	c *C.classifier_t_container
}

func newContainer() container {
	return container{c: (*C.classifier_t_container)(C.calloc(1, C.sizeof_classifier_t_container))}
}

func (c container) free() {
	C.free(unsafe.Pointer(c.c))
}

// fill writes the same pair into every slot.
func (c container) fill(classID uint32, prob float32) {
	for i := range c.c.candidates {
		c.c.candidates[i].class_id = C.uint(classID)
		c.c.candidates[i].prob = C.float(prob)
	}
}

func (c container) slot(i int) (uint32, float32) {
	s := c.c.candidates[i]
	return uint32(s.class_id), float32(s.prob)
}

func callInit(data, cfg, weights string) int {
	cData, cCfg, cWeights := C.CString(data), C.CString(cfg), C.CString(weights)
	defer C.free(unsafe.Pointer(cData))
	defer C.free(unsafe.Pointer(cCfg))
	defer C.free(unsafe.Pointer(cWeights))
	return int(init_classifier(cData, cCfg, cWeights))
}

func callPredict(path string, c container, top int) int {
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))
	return int(predict_top_classifier(cPath, c.c, C.int(top)))
}

func callPredictMem(data []byte, c container, top int) int {
	var p *C.uchar
	if len(data) > 0 {
		raw := C.CBytes(data)
		defer C.free(raw)
		p = (*C.uchar)(raw)
	}
	return int(predict_top_classifier_mem(p, C.int(len(data)), c.c, C.int(top)))
}

// callClassName calls get_class_name_n with a size-byte buffer filled with
// 0xff, and returns the NUL-terminated string found in it.
func callClassName(id, size int) (string, int) {
	buf := (*C.char)(C.malloc(C.size_t(size)))
	defer C.free(unsafe.Pointer(buf))
	C.memset(unsafe.Pointer(buf), 0xff, C.size_t(size))
	n := get_class_name_n(C.int(id), buf, C.size_t(size))
	return C.GoString(buf), int(n)
}

// callClassNameMax calls get_class_name with a CLASSIFIER_MAX_NAME buffer.
func callClassNameMax(id int) (string, int) {
	buf := (*C.char)(C.malloc(C.CLASSIFIER_MAX_NAME))
	defer C.free(unsafe.Pointer(buf))
	C.memset(unsafe.Pointer(buf), 0xff, C.CLASSIFIER_MAX_NAME)
	n := get_class_name(C.int(id), buf)
	return C.GoString(buf), int(n)
}

func callLastError() string {
	p := last_error()
	if p == nil {
		return ""
	}
	return C.GoString(p)
}

func callDispose() int {
	return int(dispose_classifier())
}

// maxName is CLASSIFIER_MAX_NAME.
const maxName = C.CLASSIFIER_MAX_NAME

// maxSlots is CLASSIFIER_MAX_OBJECTS.
const maxSlots = C.CLASSIFIER_MAX_OBJECTS
