package prop

// EnumTable maps external enum value names to integer wire codes. Entries
// keep registration order, which is also the order presented to clients.
//
// Peripherals build tables incrementally at initialization, adding rows as
// firmware gates allow; a table is immutable once its property is in use.
type EnumTable struct {
	names  []string
	codes  map[string]int64
	byCode map[int64]string
}

// NewEnumTable creates an empty table.
func NewEnumTable() *EnumTable {
	return &EnumTable{
		codes:  make(map[string]int64),
		byCode: make(map[int64]string),
	}
}

// Add appends a name/code row. Re-adding an existing name updates its code
// in place.
func (t *EnumTable) Add(name string, code int64) *EnumTable {
	if _, ok := t.codes[name]; !ok {
		t.names = append(t.names, name)
	}
	t.codes[name] = code
	t.byCode[code] = name
	return t
}

// Has reports whether the name is an allowed value.
func (t *EnumTable) Has(name string) bool {
	_, ok := t.codes[name]
	return ok
}

// Code returns the wire code for a value name.
func (t *EnumTable) Code(name string) (int64, bool) {
	code, ok := t.codes[name]
	return code, ok
}

// Name returns the value name for a wire code.
func (t *EnumTable) Name(code int64) (string, bool) {
	name, ok := t.byCode[code]
	return name, ok
}

// Names returns the allowed value names in registration order. The returned
// slice is shared; callers must not modify it.
func (t *EnumTable) Names() []string {
	return t.names
}

// Len returns the number of rows.
func (t *EnumTable) Len() int {
	return len(t.names)
}
