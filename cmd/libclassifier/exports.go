//go:build cgo

package main

/*
#include <stdlib.h>
#include "classifier.h"
*/
import "C"

import (
	"sync"
	"unsafe"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"classifier_backend/classifier"
	"classifier_backend/core"
	"classifier_backend/logging"
	"classifier_backend/session"
	"classifier_backend/vision"
)

var (
	errMu   sync.Mutex
	lastErr *C.char
)

func init() {
	session.Configure(defaultOptions()...)
}

// defaultOptions configures session.Default for the library. The host
// process owns stdout, so logging defaults to warnings and goes to
// CLASSIFIER_LOG_FILE when set.
func defaultOptions() []session.Option {
	level := logging.ParseLogLevel(logging.LevelEnvVar, zapcore.WarnLevel)
	logger, err := logging.NewLogger(logging.Config{
		Level:    &level,
		FilePath: core.GetEnvOrDefault(core.EnvLogFile, ""),
	})
	zl := zap.NewNop()
	if err == nil {
		zl = logger.Zap().Named("libclassifier")
	}

	codec := vision.DefaultCodecConfig()
	if cfg, err := core.LoadConfig(); err == nil {
		codec = cfg.CodecConfig()
	} else {
		zl.Warn("ignoring invalid environment, using codec defaults", zap.Error(err))
	}

	return []session.Option{
		session.WithLogger(zl),
		session.WithClassifierOptions(classifier.WithCodec(vision.NewCodec(codec))),
	}
}

func setLastError(err error) {
	errMu.Lock()
	defer errMu.Unlock()
	if lastErr != nil {
		C.free(unsafe.Pointer(lastErr))
		lastErr = nil
	}
	if err != nil {
		lastErr = C.CString(err.Error())
	}
}

//export init_classifier
func init_classifier(data, cfg, weights *C.char) C.int {
	err := session.Init(C.GoString(data), C.GoString(cfg), C.GoString(weights))
	setLastError(err)
	if err != nil {
		return 0
	}
	return 1
}

//export predict_top_classifier
func predict_top_classifier(image *C.char, container *C.classifier_t_container, top C.int) C.int {
	if container == nil {
		setLastError(session.ErrNilBuffer)
		return -1
	}
	var buf session.ResultBuffer
	n, _, err := session.PredictInto(C.GoString(image), &buf, int(top))
	return copyResults(container, &buf, n, err)
}

//export predict_top_classifier_mem
func predict_top_classifier_mem(data *C.uchar, length C.int, container *C.classifier_t_container, top C.int) C.int {
	if container == nil {
		setLastError(session.ErrNilBuffer)
		return -1
	}
	var bytes []byte
	if data != nil && length > 0 {
		bytes = C.GoBytes(unsafe.Pointer(data), length)
	}
	var buf session.ResultBuffer
	n, _, err := session.PredictBytesInto(bytes, &buf, int(top))
	return copyResults(container, &buf, n, err)
}

func copyResults(container *C.classifier_t_container, buf *session.ResultBuffer, n int, err error) C.int {
	setLastError(err)
	if err != nil {
		return -1
	}
	for i := 0; i < n; i++ {
		container.candidates[i].class_id = C.uint(buf[i].ClassID)
		container.candidates[i].prob = C.float(buf[i].Probability)
	}
	return C.int(n)
}

// get_class_name writes the NUL-terminated name of class id into buf, which
// must hold CLASSIFIER_MAX_NAME bytes. Longer names are cut. It returns the
// number of bytes written, not counting the terminator.
//
//export get_class_name
func get_class_name(id C.int, buf *C.char) C.size_t {
	return get_class_name_n(id, buf, C.CLASSIFIER_MAX_NAME)
}

//export get_class_name_n
func get_class_name_n(id C.int, buf *C.char, size C.size_t) C.size_t {
	if buf == nil || size == 0 {
		setLastError(session.ErrNilBuffer)
		return 0
	}
	dst := unsafe.Slice((*byte)(unsafe.Pointer(buf)), int(size))
	name, err := session.ClassName(int(id))
	setLastError(err)
	if err != nil {
		dst[0] = 0
		return 0
	}
	n := copy(dst[:len(dst)-1], name)
	dst[n] = 0
	return C.size_t(n)
}

//export dispose_classifier
func dispose_classifier() C.int {
	session.Dispose()
	setLastError(nil)
	return 1
}

// last_error returns the message of the most recent failed call, or NULL.
// The string stays valid until the next call into the library.
//
//export last_error
func last_error() *C.char {
	errMu.Lock()
	defer errMu.Unlock()
	return lastErr
}
