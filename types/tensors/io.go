/*
 *	Copyright 2025 The Kayak Authors
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

package tensors

import (
	"encoding/gob"
	"os"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/silky/Kayak/types/shapes"
)

// GobSerialize the Tensor in binary format.
func (t *Tensor) GobSerialize(encoder *gob.Encoder) (err error) {
	err = t.shape.GobSerialize(encoder)
	if err != nil {
		return
	}
	err = encoder.Encode(t.flat)
	if err != nil {
		err = errors.Wrapf(err, "failed to serialize Tensor data")
	}
	return
}

// GobDeserialize a Tensor from the decoder. Returns a new Tensor or an error.
func GobDeserialize(decoder *gob.Decoder) (t *Tensor, err error) {
	shape, err := shapes.GobDeserialize(decoder)
	if err != nil {
		err = errors.WithMessagef(err, "failed to deserialize Tensor shape")
		return
	}
	t = FromShape(shape)
	err = decoder.Decode(&t.flat)
	if err != nil {
		err = errors.Wrapf(err, "failed to deserialize Tensor data")
		return nil, err
	}
	if len(t.flat) != shape.Size() {
		return nil, errors.Errorf("deserialized Tensor data has %d elements, but shape %s requires %d",
			len(t.flat), shape, shape.Size())
	}
	return
}

// Save the tensor to the given file path.
//
// It returns an error for I/O errors.
func (t *Tensor) Save(filePath string) (err error) {
	var f *os.File
	f, err = os.Create(filePath)
	if err != nil {
		err = errors.Wrapf(err, "creating %q to save tensor", filePath)
		return
	}
	enc := gob.NewEncoder(f)
	err = t.GobSerialize(enc)
	if err != nil {
		err = errors.WithMessagef(err, "saving Tensor to %q", filePath)
		_ = f.Close()
		return
	}
	err = f.Close()
	if err != nil {
		err = errors.Wrapf(err, "close file %q, where tensor was saved", filePath)
		return
	}
	return
}

// Load a tensor from the file path given.
func Load(filePath string) (t *Tensor, err error) {
	f, err := os.Open(filePath)
	if err != nil {
		err = errors.Wrapf(err, "opening %q to load Tensor", filePath)
		return
	}
	dec := gob.NewDecoder(f)
	t, err = GobDeserialize(dec)
	if err != nil {
		err = errors.WithMessagef(err, "loading Tensor from %q", filePath)
		return
	}
	if err2 := f.Close(); err2 != nil {
		klog.Warningf("failed to close %q after loading Tensor: %v", filePath, err2)
	}
	return
}
