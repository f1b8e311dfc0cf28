package form

import "iter"

// Data is a single decoded multipart part. All string fields are views into
// the connection's arena-backed buffer and share its lifetime: a Data must
// not outlive the request it came from.
type Data struct {
	Name     string
	Filename string
	Type     string
	Value    string
}

// IsFile reports whether the part arrived with a filename, i.e. was a file
// upload rather than a plain text field.
func (d Data) IsFile() bool {
	return len(d.Filename) != 0
}

// Form holds decoded parts in the order they appeared on the wire.
type Form []Data

// Name returns the first Data matching the field name.
func (f Form) Name(name string) (Data, bool) {
	for data := range f.Names(name) {
		return data, true
	}

	return Data{}, false
}

// Names returns an iterator over all Data matching the field name.
func (f Form) Names(name string) iter.Seq[Data] {
	return func(yield func(Data) bool) {
		for _, entry := range f {
			if entry.Name == name {
				if !yield(entry) {
					break
				}
			}
		}
	}
}

// File returns the first Data matching the filename.
func (f Form) File(name string) (Data, bool) {
	for data := range f.Files(name) {
		return data, true
	}

	return Data{}, false
}

// Files returns an iterator over all Data matching the filename.
func (f Form) Files(name string) iter.Seq[Data] {
	return func(yield func(Data) bool) {
		for _, entry := range f {
			if entry.Filename == name {
				if !yield(entry) {
					break
				}
			}
		}
	}
}
