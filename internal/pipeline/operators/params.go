package operators

import (
	"bytes"
	"encoding/json"
	"fmt"

	"spectral-workbench/internal/common/errors"
	"spectral-workbench/internal/common/validation"
)

// DecodeParams decodes params into dst, which should already hold the
// operator's defaults. Unknown keys are rejected and the result is checked
// against dst's validate tags.
func DecodeParams(params Params, dst interface{}) error {
	if len(params) > 0 {
		raw, err := json.Marshal(params)
		if err != nil {
			return errors.ValidationErrorf("params are not valid JSON: %v", err).WithCode(errors.CodeInvalidParams)
		}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(dst); err != nil {
			return errors.ValidationErrorf("invalid params: %v", err).WithCode(errors.CodeInvalidParams)
		}
	}

	if err := validation.ValidateStruct(dst); err != nil {
		if appErr, ok := errors.As(err); ok {
			return appErr.WithCode(errors.CodeInvalidParams)
		}
		return err
	}
	return nil
}

func invalidParams(format string, args ...interface{}) error {
	return errors.ValidationError(fmt.Sprintf(format, args...)).WithCode(errors.CodeInvalidParams)
}

type transformerFactory[P any] struct {
	name        string
	description string
	defaults    func() P
	build       func(P) (Transformer, error)
}

func (f *transformerFactory[P]) GetType() string     { return f.name }
func (f *transformerFactory[P]) Description() string { return f.description }

func (f *transformerFactory[P]) Create(params Params) (Transformer, error) {
	p := f.defaults()
	if err := DecodeParams(params, &p); err != nil {
		return nil, err
	}
	return f.build(p)
}

type splitterFactory[P any] struct {
	name        string
	description string
	defaults    func() P
	build       func(P) (Splitter, error)
}

func (f *splitterFactory[P]) GetType() string     { return f.name }
func (f *splitterFactory[P]) Description() string { return f.description }

func (f *splitterFactory[P]) Create(params Params) (Splitter, error) {
	p := f.defaults()
	if err := DecodeParams(params, &p); err != nil {
		return nil, err
	}
	return f.build(p)
}

// NewTransformerFactory returns a factory that decodes params over
// defaults() and passes them to build.
func NewTransformerFactory[P any](name, description string, defaults func() P, build func(P) (Transformer, error)) TransformerFactory {
	return &transformerFactory[P]{name: name, description: description, defaults: defaults, build: build}
}

// NewSplitterFactory returns a factory that decodes params over
// defaults() and passes them to build.
func NewSplitterFactory[P any](name, description string, defaults func() P, build func(P) (Splitter, error)) SplitterFactory {
	return &splitterFactory[P]{name: name, description: description, defaults: defaults, build: build}
}
