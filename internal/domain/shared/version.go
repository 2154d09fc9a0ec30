package shared

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// NullableVersion is a stored row version. Rows created before versioning existed
// have no version; such a row matches any expected version, and the next successful
// write gives it a concrete one.
type NullableVersion struct {
	value int
	valid bool
}

// VersionOf returns a concrete version
func VersionOf(v int) NullableVersion {
	return NullableVersion{value: v, valid: true}
}

// NoVersion returns the legacy "never versioned" value
func NoVersion() NullableVersion {
	return NullableVersion{}
}

// Get returns the version and whether it is set
func (v NullableVersion) Get() (int, bool) {
	return v.value, v.valid
}

// IsNull reports whether the row has never been versioned
func (v NullableVersion) IsNull() bool {
	return !v.valid
}

// Matches reports whether a write expecting the given version may apply
func (v NullableVersion) Matches(expected ExpectedVersion) bool {
	want, ok := expected.Get()
	if !ok || !v.valid {
		return true
	}
	return v.value == want
}

// Next returns the version a successful write produces
func (v NullableVersion) Next() int {
	if !v.valid {
		return 1
	}
	return v.value + 1
}

// Ptr returns the version as a pointer, nil when unset
func (v NullableVersion) Ptr() *int {
	if !v.valid {
		return nil
	}
	n := v.value
	return &n
}

func (v NullableVersion) String() string {
	if !v.valid {
		return "null"
	}
	return fmt.Sprintf("%d", v.value)
}

// Scan implements sql.Scanner
func (v *NullableVersion) Scan(src any) error {
	switch t := src.(type) {
	case nil:
		*v = NoVersion()
	case int64:
		*v = VersionOf(int(t))
	case int32:
		*v = VersionOf(int(t))
	case int:
		*v = VersionOf(t)
	case []byte:
		var n int
		if _, err := fmt.Sscan(string(t), &n); err != nil {
			return fmt.Errorf("scan version: %w", err)
		}
		*v = VersionOf(n)
	default:
		return fmt.Errorf("scan version: unsupported type %T", src)
	}
	return nil
}

// Value implements driver.Valuer
func (v NullableVersion) Value() (driver.Value, error) {
	if !v.valid {
		return nil, nil
	}
	return int64(v.value), nil
}

// MarshalJSON renders null for unversioned rows
func (v NullableVersion) MarshalJSON() ([]byte, error) {
	if !v.valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.value)
}

// UnmarshalJSON accepts null or an integer
func (v *NullableVersion) UnmarshalJSON(data []byte) error {
	var p *int
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p == nil {
		*v = NoVersion()
		return nil
	}
	*v = VersionOf(*p)
	return nil
}

// ExpectedVersion is what a caller believes the stored version to be.
// The zero value means "not supplied" and permits a blind write.
type ExpectedVersion struct {
	value int
	set   bool
}

// Expect returns an expected version that must match before a write applies
func Expect(v int) ExpectedVersion {
	return ExpectedVersion{value: v, set: true}
}

// AnyVersion returns the blind-write expectation used by trusted internal writers
func AnyVersion() ExpectedVersion {
	return ExpectedVersion{}
}

// ExpectFromPtr converts an optional request field
func ExpectFromPtr(v *int) ExpectedVersion {
	if v == nil {
		return AnyVersion()
	}
	return Expect(*v)
}

// Get returns the expected version and whether the caller supplied one
func (e ExpectedVersion) Get() (int, bool) {
	return e.value, e.set
}

// IsSet reports whether a compare-and-swap is requested
func (e ExpectedVersion) IsSet() bool {
	return e.set
}
