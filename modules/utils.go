package modules

import (
	"fmt"
	"math"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

type Result[T any] struct {
	Value T
	Err   error
}

// Validate decodes input into output and validates the result. Unknown keys,
// fractional values for integer fields and values that overflow the field
// type are rejected.
func Validate[T any](input map[string]interface{}, output *T) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  numericRangeHook,
		ErrorUnused: true,
		Result:      output,
	})
	if err != nil {
		return fmt.Errorf("error creating decoder: %w", err)
	}
	err = decoder.Decode(input)
	if err != nil {
		return fmt.Errorf("input decoding error: %w", err)
	}
	validate := validator.New()
	err = validate.Struct(output)
	if err != nil {
		return fmt.Errorf("error validating structure fields: %w", err)
	}
	return nil
}

func numericRangeHook(from reflect.Value, to reflect.Value) (interface{}, error) {
	switch to.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		max := ^uint64(0) >> (64 - to.Type().Bits())
		switch from.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if v := from.Int(); v < 0 || uint64(v) > max {
				return nil, fmt.Errorf("%d is out of range for %s", v, to.Type())
			}
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if v := from.Uint(); v > max {
				return nil, fmt.Errorf("%d is out of range for %s", v, to.Type())
			}
		case reflect.Float32, reflect.Float64:
			v := from.Float()
			if v != math.Trunc(v) {
				return nil, fmt.Errorf("%v is not an integer", v)
			}
			if v < 0 || v > float64(max) {
				return nil, fmt.Errorf("%v is out of range for %s", v, to.Type())
			}
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		bits := to.Type().Bits()
		max := int64(^uint64(0) >> (65 - bits))
		min := -max - 1
		switch from.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if v := from.Int(); v < min || v > max {
				return nil, fmt.Errorf("%d is out of range for %s", v, to.Type())
			}
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if v := from.Uint(); v > uint64(max) {
				return nil, fmt.Errorf("%d is out of range for %s", v, to.Type())
			}
		case reflect.Float32, reflect.Float64:
			v := from.Float()
			if v != math.Trunc(v) {
				return nil, fmt.Errorf("%v is not an integer", v)
			}
			if v < float64(min) || v > float64(max) {
				return nil, fmt.Errorf("%v is out of range for %s", v, to.Type())
			}
		}
	case reflect.Float32:
		switch from.Kind() {
		case reflect.Float32, reflect.Float64:
			if v := from.Float(); math.Abs(v) > math.MaxFloat32 && !math.IsInf(v, 0) {
				return nil, fmt.Errorf("%v is out of range for %s", v, to.Type())
			}
		}
	}
	return from.Interface(), nil
}
