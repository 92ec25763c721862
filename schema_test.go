package rest_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/rest"
)

type Address struct {
	Street string `json:"street" required:"true"`
	City   string `json:"city,omitempty" doc:"City name"`
}

type Person struct {
	ID       uuid.UUID         `json:"id"`
	Name     string            `json:"name" required:"true" doc:"Full name"`
	Age      int               `json:"age" minimum:"0" maximum:"150"`
	Role     string            `json:"role" enum:"admin,member"`
	Home     Address           `json:"home" doc:"ignored on references"`
	Friends  []*Person         `json:"friends"`
	Labels   map[string]string `json:"labels"`
	Born     time.Time         `json:"born"`
	Avatar   []byte            `json:"avatar"`
	Secret   string            `json:"-"`
	TenantID string            `header:"X-Tenant"`
}

type Nickname struct{}

func (Nickname) SchemaName() string { return "Alias" }

func TestSchemaRegistry_TypeToSchema(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		typ  reflect.Type
		want rest.JSONSchema
	}{
		"string":   {typ: reflect.TypeFor[string](), want: rest.JSONSchema{Type: "string"}},
		"bool":     {typ: reflect.TypeFor[bool](), want: rest.JSONSchema{Type: "boolean"}},
		"int":      {typ: reflect.TypeFor[int64](), want: rest.JSONSchema{Type: "integer"}},
		"uint":     {typ: reflect.TypeFor[uint8](), want: rest.JSONSchema{Type: "integer"}},
		"float":    {typ: reflect.TypeFor[float32](), want: rest.JSONSchema{Type: "number"}},
		"time":     {typ: reflect.TypeFor[time.Time](), want: rest.JSONSchema{Type: "string", Format: "date-time"}},
		"duration": {typ: reflect.TypeFor[time.Duration](), want: rest.JSONSchema{Type: "string", Format: "duration"}},
		"uuid":     {typ: reflect.TypeFor[uuid.UUID](), want: rest.JSONSchema{Type: "string", Format: "uuid"}},
		"bytes":    {typ: reflect.TypeFor[[]byte](), want: rest.JSONSchema{Type: "string", Format: "byte"}},
		"pointer":  {typ: reflect.TypeFor[*string](), want: rest.JSONSchema{Type: "string"}},
		"file":     {typ: reflect.TypeFor[rest.FileUpload](), want: rest.JSONSchema{Type: "string", Format: "binary"}},
		"void":     {typ: reflect.TypeFor[rest.Void](), want: rest.JSONSchema{}},
		"slice": {
			typ:  reflect.TypeFor[[]int](),
			want: rest.JSONSchema{Type: "array", Items: &rest.JSONSchema{Type: "integer"}},
		},
		"map": {
			typ:  reflect.TypeFor[map[string]bool](),
			want: rest.JSONSchema{Type: "object", AdditionalProperties: &rest.JSONSchema{Type: "boolean"}},
		},
		"map with int keys": {
			typ:  reflect.TypeFor[map[int]bool](),
			want: rest.JSONSchema{Type: "object"},
		},
		"named struct": {
			typ:  reflect.TypeFor[Address](),
			want: rest.JSONSchema{Ref: "#/components/schemas/Address"},
		},
		"schema namer": {
			typ:  reflect.TypeFor[Nickname](),
			want: rest.JSONSchema{Ref: "#/components/schemas/Alias"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			reg := rest.NewSchemaRegistry()
			assert.Equal(t, tc.want, reg.TypeToSchema(tc.typ))
		})
	}
}

func TestSchemaRegistry_struct(t *testing.T) {
	t.Parallel()

	reg := rest.NewSchemaRegistry()
	ref := reg.TypeToSchema(reflect.TypeFor[Person]())
	assert.Equal(t, "#/components/schemas/Person", ref.Ref)

	require.Contains(t, reg.Defs, "Person")
	require.Contains(t, reg.Defs, "Address")

	person := reg.Defs["Person"]
	assert.Equal(t, "object", person.Type)
	assert.Equal(t, []string{"name"}, person.Required)
	assert.ElementsMatch(t, []string{"id", "name", "age", "role", "home", "friends", "labels", "born", "avatar"},
		keys(person.Properties))

	assert.Equal(t, "Full name", person.Properties["name"].Description)
	assert.Equal(t, []string{"admin", "member"}, person.Properties["role"].Enum)
	require.NotNil(t, person.Properties["age"].Minimum)
	require.NotNil(t, person.Properties["age"].Maximum)
	assert.InDelta(t, 150.0, *person.Properties["age"].Maximum, 0)

	// References carry no siblings.
	assert.Equal(t, rest.JSONSchema{Ref: "#/components/schemas/Address"}, person.Properties["home"])

	// Recursive types terminate with a reference.
	friends := person.Properties["friends"]
	assert.Equal(t, "array", friends.Type)
	assert.Equal(t, "#/components/schemas/Person", friends.Items.Ref)

	address := reg.Defs["Address"]
	assert.Equal(t, "City name", address.Properties["city"].Description)
}

func TestSchemaRegistry_anonymous_struct(t *testing.T) {
	t.Parallel()

	reg := rest.NewSchemaRegistry()
	got := reg.TypeToSchema(reflect.TypeFor[struct {
		A string `json:"a"`
	}]())

	assert.Equal(t, "object", got.Type)
	assert.Contains(t, got.Properties, "a")
	assert.Empty(t, reg.Defs)
}

type WidgetSchema struct{}

func TestSchemaNameOf(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		typ  reflect.Type
		want string
	}{
		"plain":          {typ: reflect.TypeFor[Address](), want: "Address"},
		"pointer":        {typ: reflect.TypeFor[*Address](), want: "Address"},
		"schema suffix":  {typ: reflect.TypeFor[WidgetSchema](), want: "Widget"},
		"namer":          {typ: reflect.TypeFor[Nickname](), want: "Alias"},
		"paginated list": {typ: reflect.TypeFor[rest.PaginatedList[Address]](), want: "AddressList"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, rest.SchemaNameOf(tc.typ))
		})
	}
}
