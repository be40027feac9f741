package container

import (
	"fmt"
)

// DType identifies the element type of an [Array].
type DType uint8

// Supported element types.
const (
	Int32 DType = iota + 1
	Int64
	Float32
	Float64
	String
)

// String returns the lower-case type name.
func (d DType) String() string {
	switch d {
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case String:
		return "string"
	default:
		return fmt.Sprintf("dtype(%d)", uint8(d))
	}
}

// Size returns the encoded width of one element, or 0 for variable-width
// strings.
func (d DType) Size() int {
	switch d {
	case Int32, Float32:
		return 4
	case Int64, Float64:
		return 8
	default:
		return 0
	}
}

func (d DType) valid() bool { return d >= Int32 && d <= String }

// Array is a typed n-dimensional value stored in row-major order. An empty
// shape denotes a scalar holding exactly one element.
//
// Arrays are built with the typed constructors ([Int32s], [Float64s], ...)
// and read with the matching accessors, which report false on a type
// mismatch.
type Array struct {
	dtype DType
	shape []int

	i32 []int32
	i64 []int64
	f32 []float32
	f64 []float64
	str []string
}

// shapeOf returns shape, or the 1-D shape {n} when none is given.
func shapeOf(n int, shape []int) []int {
	if len(shape) == 0 {
		return []int{n}
	}
	return append([]int(nil), shape...)
}

// Int32Scalar returns a scalar int32.
func Int32Scalar(v int32) Array { return Array{dtype: Int32, shape: []int{}, i32: []int32{v}} }

// Int64Scalar returns a scalar int64.
func Int64Scalar(v int64) Array { return Array{dtype: Int64, shape: []int{}, i64: []int64{v}} }

// Int32s returns an int32 array. Without a shape the array is 1-D.
func Int32s(v []int32, shape ...int) Array {
	return Array{dtype: Int32, shape: shapeOf(len(v), shape), i32: v}
}

// Int64s returns an int64 array. Without a shape the array is 1-D.
func Int64s(v []int64, shape ...int) Array {
	return Array{dtype: Int64, shape: shapeOf(len(v), shape), i64: v}
}

// Float32s returns a float32 array. Without a shape the array is 1-D.
func Float32s(v []float32, shape ...int) Array {
	return Array{dtype: Float32, shape: shapeOf(len(v), shape), f32: v}
}

// Float64s returns a float64 array. Without a shape the array is 1-D.
func Float64s(v []float64, shape ...int) Array {
	return Array{dtype: Float64, shape: shapeOf(len(v), shape), f64: v}
}

// Strings returns a 1-D string list.
func Strings(v []string) Array {
	return Array{dtype: String, shape: []int{len(v)}, str: v}
}

// DType returns the element type.
func (a Array) DType() DType { return a.dtype }

// Shape returns a copy of the shape.
func (a Array) Shape() []int { return append([]int{}, a.shape...) }

// Len returns the number of stored elements.
func (a Array) Len() int {
	switch a.dtype {
	case Int32:
		return len(a.i32)
	case Int64:
		return len(a.i64)
	case Float32:
		return len(a.f32)
	case Float64:
		return len(a.f64)
	case String:
		return len(a.str)
	default:
		return 0
	}
}

// Validate checks that the element type is known, that every dimension is
// non-negative, and that the shape describes exactly Len elements.
func (a Array) Validate() error {
	if !a.dtype.valid() {
		return fmt.Errorf("unknown element type %s", a.dtype)
	}
	n := 1
	for _, d := range a.shape {
		if d < 0 {
			return fmt.Errorf("negative dimension in shape %v", a.shape)
		}
		n *= d
	}
	if n != a.Len() {
		return fmt.Errorf("shape %v holds %d elements, array has %d", a.shape, n, a.Len())
	}
	return nil
}

// AsInt32 returns the elements of an int32 array.
func (a Array) AsInt32() ([]int32, bool) { return a.i32, a.dtype == Int32 }

// AsInt64 returns the elements of an int64 array.
func (a Array) AsInt64() ([]int64, bool) { return a.i64, a.dtype == Int64 }

// AsFloat32 returns the elements of a float32 array.
func (a Array) AsFloat32() ([]float32, bool) { return a.f32, a.dtype == Float32 }

// AsFloat64 returns the elements of a float64 array.
func (a Array) AsFloat64() ([]float64, bool) { return a.f64, a.dtype == Float64 }

// AsStrings returns the elements of a string array.
func (a Array) AsStrings() ([]string, bool) { return a.str, a.dtype == String }

// Ints widens any integer array to int64.
func (a Array) Ints() ([]int64, bool) {
	switch a.dtype {
	case Int64:
		return a.i64, true
	case Int32:
		out := make([]int64, len(a.i32))
		for i, v := range a.i32 {
			out[i] = int64(v)
		}
		return out, true
	default:
		return nil, false
	}
}

// Floats widens any floating-point array to float64.
func (a Array) Floats() ([]float64, bool) {
	switch a.dtype {
	case Float64:
		return a.f64, true
	case Float32:
		out := make([]float64, len(a.f32))
		for i, v := range a.f32 {
			out[i] = float64(v)
		}
		return out, true
	default:
		return nil, false
	}
}

// Int returns the value of a scalar or single-element integer array.
func (a Array) Int() (int64, bool) {
	v, ok := a.Ints()
	if !ok || len(v) != 1 {
		return 0, false
	}
	return v[0], true
}
