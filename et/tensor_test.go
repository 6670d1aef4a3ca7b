package et

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewTensor(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	tensor, err := NewTensor(data, NewShape(2, 1), DTypeFloat32)
	if err != nil {
		t.Fatalf("NewTensor() error = %v", err)
	}

	if got := tensor.Dtype(); got != DTypeFloat32 {
		t.Errorf("Dtype() = %v, want %v", got, DTypeFloat32)
	}
	if got := tensor.Rank(); got != 2 {
		t.Errorf("Rank() = %d, want 2", got)
	}
	if diff := cmp.Diff(NewShape(2, 1), tensor.Shape()); diff != "" {
		t.Errorf("Shape() mismatch (-want +got):\n%s", diff)
	}
	if got := tensor.DataSize(); got != len(data) {
		t.Errorf("DataSize() = %d, want %d", got, len(data))
	}
	if !bytes.Equal(tensor.Data(), data) {
		t.Errorf("Data() = %v, want %v", tensor.Data(), data)
	}
}

func TestNewTensorCopiesData(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	tensor, err := NewTensor(data, NewShape(1), DTypeFloat32)
	if err != nil {
		t.Fatalf("NewTensor() error = %v", err)
	}

	data[0] = 99
	if tensor.Data()[0] != 1 {
		t.Error("tensor retained the caller's buffer instead of copying it")
	}

	shape := NewShape(1)
	tensor2, err := NewTensor([]byte{0, 0, 0, 0}, shape, DTypeFloat32)
	if err != nil {
		t.Fatalf("NewTensor() error = %v", err)
	}
	shape[0] = 42
	if tensor2.Shape()[0] != 1 {
		t.Error("tensor retained the caller's shape instead of copying it")
	}
}

func TestNewTensorValidation(t *testing.T) {
	tests := []struct {
		name  string
		data  []byte
		shape Shape
		dtype DType
	}{
		{
			name:  "size mismatch too small",
			data:  make([]byte, 4),
			shape: NewShape(2),
			dtype: DTypeFloat32,
		},
		{
			name:  "size mismatch too large",
			data:  make([]byte, 12),
			shape: NewShape(2),
			dtype: DTypeFloat32,
		},
		{
			name:  "empty shape",
			data:  make([]byte, 4),
			shape: Shape{},
			dtype: DTypeFloat32,
		},
		{
			name:  "nil shape",
			data:  make([]byte, 4),
			shape: nil,
			dtype: DTypeFloat32,
		},
		{
			name:  "zero dimension",
			data:  []byte{},
			shape: NewShape(0),
			dtype: DTypeFloat32,
		},
		{
			name:  "negative dimension",
			data:  make([]byte, 8),
			shape: NewShape(2, -1),
			dtype: DTypeFloat32,
		},
		{
			name:  "unknown dtype",
			data:  make([]byte, 4),
			shape: NewShape(1),
			dtype: DType(42),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tensor, err := NewTensor(tt.data, tt.shape, tt.dtype)
			if err == nil {
				t.Fatal("NewTensor() expected error, got nil")
			}
			if tensor != nil {
				t.Error("NewTensor() returned a tensor alongside an error")
			}
			if code := StatusCode(err); code != ErrorCodeInvalidArgument {
				t.Errorf("StatusCode() = %v, want %v", code, ErrorCodeInvalidArgument)
			}
		})
	}
}

func TestNewTensorSizeMismatchMessage(t *testing.T) {
	_, err := NewTensor(make([]byte, 4), NewShape(2), DTypeFloat32)
	if err == nil {
		t.Fatal("expected error")
	}

	var status *Status
	if !errors.As(err, &status) {
		t.Fatalf("error is %T, want *Status", err)
	}
	want := "data size mismatch: expected 8, got 4"
	if status.Message() != want {
		t.Errorf("Message() = %q, want %q", status.Message(), want)
	}
}

func TestNewTensorOf(t *testing.T) {
	t.Run("float32", func(t *testing.T) {
		data := []float32{1.5, -2.25, 0, 4}
		tensor, err := NewTensorOf(data, NewShape(2, 2))
		if err != nil {
			t.Fatalf("NewTensorOf() error = %v", err)
		}
		if tensor.Dtype() != DTypeFloat32 {
			t.Errorf("Dtype() = %v, want %v", tensor.Dtype(), DTypeFloat32)
		}
		if got := tensor.Float32s(); !reflect.DeepEqual(got, data) {
			t.Errorf("Float32s() = %v, want %v", got, data)
		}
	})

	t.Run("int64", func(t *testing.T) {
		data := []int64{1, -2, 3}
		tensor, err := NewTensorOf(data, NewShape(3))
		if err != nil {
			t.Fatalf("NewTensorOf() error = %v", err)
		}
		if tensor.Dtype() != DTypeInt64 {
			t.Errorf("Dtype() = %v, want %v", tensor.Dtype(), DTypeInt64)
		}
		if got := tensor.Int64s(); !reflect.DeepEqual(got, data) {
			t.Errorf("Int64s() = %v, want %v", got, data)
		}
		if tensor.DataSize() != 24 {
			t.Errorf("DataSize() = %d, want 24", tensor.DataSize())
		}
	})

	t.Run("bool", func(t *testing.T) {
		tensor, err := NewTensorOf([]bool{true, false}, NewShape(2))
		if err != nil {
			t.Fatalf("NewTensorOf() error = %v", err)
		}
		if tensor.Dtype() != DTypeBool {
			t.Errorf("Dtype() = %v, want %v", tensor.Dtype(), DTypeBool)
		}
		if !bytes.Equal(tensor.Data(), []byte{1, 0}) {
			t.Errorf("Data() = %v, want [1 0]", tensor.Data())
		}
	})

	t.Run("uint8", func(t *testing.T) {
		tensor, err := NewTensorOf([]uint8{7, 8, 9}, NewShape(3))
		if err != nil {
			t.Fatalf("NewTensorOf() error = %v", err)
		}
		if tensor.Dtype() != DTypeUint8 {
			t.Errorf("Dtype() = %v, want %v", tensor.Dtype(), DTypeUint8)
		}
	})

	t.Run("unsupported element type", func(t *testing.T) {
		_, err := NewTensorOf([]string{"nope"}, NewShape(1))
		if err == nil {
			t.Fatal("expected error for unsupported element type")
		}
		if code := StatusCode(err); code != ErrorCodeUnsupported {
			t.Errorf("StatusCode() = %v, want %v", code, ErrorCodeUnsupported)
		}
	})

	t.Run("length mismatch", func(t *testing.T) {
		_, err := NewTensorOf([]float32{1, 2, 3}, NewShape(2))
		if err == nil {
			t.Fatal("expected error for length mismatch")
		}
		if code := StatusCode(err); code != ErrorCodeInvalidArgument {
			t.Errorf("StatusCode() = %v, want %v", code, ErrorCodeInvalidArgument)
		}
	})
}

func TestNewEmptyTensor(t *testing.T) {
	tensor, err := NewEmptyTensor(NewShape(2, 3), DTypeInt16)
	if err != nil {
		t.Fatalf("NewEmptyTensor() error = %v", err)
	}

	if tensor.DataSize() != 12 {
		t.Errorf("DataSize() = %d, want 12", tensor.DataSize())
	}
	for i, b := range tensor.Data() {
		if b != 0 {
			t.Fatalf("Data()[%d] = %d, want 0", i, b)
		}
	}
}

func TestTensorNilAccessors(t *testing.T) {
	var tensor *Tensor

	if got := tensor.Dtype(); got != DTypeFloat32 {
		t.Errorf("Dtype() = %v, want %v", got, DTypeFloat32)
	}
	if got := tensor.Rank(); got != 0 {
		t.Errorf("Rank() = %d, want 0", got)
	}
	if got := tensor.Shape(); got != nil {
		t.Errorf("Shape() = %v, want nil", got)
	}
	if got := tensor.DataSize(); got != 0 {
		t.Errorf("DataSize() = %d, want 0", got)
	}
	if got := tensor.Data(); got != nil {
		t.Errorf("Data() = %v, want nil", got)
	}
	if got := tensor.Float32s(); got != nil {
		t.Errorf("Float32s() = %v, want nil", got)
	}
	if err := tensor.Destroy(); err != nil {
		t.Errorf("Destroy() on nil = %v, want nil", err)
	}
}

func TestTensorDestroy(t *testing.T) {
	tensor, err := NewTensorOf([]float32{1, 2}, NewShape(2))
	if err != nil {
		t.Fatalf("NewTensorOf() error = %v", err)
	}

	if err := tensor.Destroy(); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if tensor.Data() != nil {
		t.Error("Data() should be nil after Destroy")
	}
	if tensor.Shape() != nil {
		t.Error("Shape() should be nil after Destroy")
	}
	if err := tensor.Destroy(); err != nil {
		t.Errorf("second Destroy() = %v, want nil", err)
	}
}

func TestDestroyTensors(t *testing.T) {
	a, _ := NewTensorOf([]float32{1}, NewShape(1))
	b, _ := NewTensorOf([]int32{2}, NewShape(1))

	DestroyTensors([]*Tensor{a, nil, b})
	if a.Data() != nil || b.Data() != nil {
		t.Error("DestroyTensors did not destroy all tensors")
	}

	DestroyTensors(nil)
}

func TestTensorViewDtypeMismatch(t *testing.T) {
	tensor, err := NewTensorOf([]int32{1, 2}, NewShape(2))
	if err != nil {
		t.Fatalf("NewTensorOf() error = %v", err)
	}

	if got := tensor.Float32s(); got != nil {
		t.Errorf("Float32s() on int32 tensor = %v, want nil", got)
	}
	if got := tensor.Int32s(); got == nil {
		t.Error("Int32s() on int32 tensor = nil, want view")
	}
}

func TestShapeElementCount(t *testing.T) {
	tests := []struct {
		name    string
		shape   Shape
		want    int
		wantErr bool
	}{
		{name: "scalar-like", shape: NewShape(1), want: 1},
		{name: "vector", shape: NewShape(7), want: 7},
		{name: "matrix", shape: NewShape(3, 4), want: 12},
		{name: "image batch", shape: NewShape(1, 3, 224, 224), want: 150528},
		{name: "zero dimension", shape: NewShape(3, 0), wantErr: true},
		{name: "negative dimension", shape: NewShape(-1, 2), wantErr: true},
		{name: "overflow", shape: NewShape(1<<31, 1<<31, 4), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ShapeElementCount(tt.shape)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ShapeElementCount() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ShapeElementCount() = %d, want %d", got, tt.want)
			}
		})
	}
}
