package typedesc

import (
	stderrors "errors"
	"testing"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/hotreflect/errors"
)

func TestHashString(t *testing.T) {
	// djb2 reference values.
	tests := []struct {
		in   string
		want Hash
	}{
		{"", 5381},
		{"a", 177670},
		{"ab", 5863208},
	}
	for _, tt := range tests {
		if got := HashString(tt.in); got != tt.want {
			t.Errorf("HashString(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
	if HashString("Vec3") == HashString("Vec4") {
		t.Error("distinct names should hash differently")
	}
}

func TestInferKind(t *testing.T) {
	tests := []struct {
		size uint32
		ref  TypeID
		want Kind
	}{
		{4, None, KindF32},
		{8, None, KindF64},
		{1, None, KindU8},
		{2, None, KindU16},
		{32, None, KindBytes},
		{12, 3, KindNested},
	}
	for _, tt := range tests {
		if got := InferKind(tt.size, tt.ref); got != tt.want {
			t.Errorf("InferKind(%d, %d) = %s, want %s", tt.size, tt.ref, got, tt.want)
		}
	}

	f := Field{Size: 4, Ref: None}
	if f.StorageKind() != KindF32 {
		t.Errorf("unset kind should infer f32, got %s", f.StorageKind())
	}
	f.Kind = KindU32
	if f.StorageKind() != KindU32 {
		t.Errorf("explicit kind should win, got %s", f.StorageKind())
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		typ  wit.Type
		want Kind
	}{
		{wit.U32{}, KindU32},
		{wit.S16{}, KindS16},
		{wit.F64{}, KindF64},
		{wit.Bool{}, KindBool},
		{wit.Char{}, KindU32},
		{&wit.TypeDef{Kind: &wit.Record{}}, KindNested},
		{&wit.TypeDef{Kind: &wit.Enum{Cases: make([]wit.EnumCase, 4)}}, KindU8},
		{&wit.TypeDef{Kind: &wit.Flags{Flags: make([]wit.Flag, 20)}}, KindU32},
		{wit.String{}, KindOpaque},
	}
	for _, tt := range tests {
		if got := KindOf(tt.typ); got != tt.want {
			t.Errorf("KindOf(%T) = %s, want %s", tt.typ, got, tt.want)
		}
	}
}

func TestBuilder_Player(t *testing.T) {
	vec3 := NewBuilder("Vec3").
		Scalar("x", KindF32).
		Scalar("y", KindF32).
		Scalar("z", KindF32).
		Build()
	vec3.ID = 0

	if vec3.Size != 12 || vec3.Align != 4 {
		t.Fatalf("Vec3 size/align = %d/%d, want 12/4", vec3.Size, vec3.Align)
	}
	if vec3.Fields[1].Offset != 4 {
		t.Errorf("y offset = %d, want 4", vec3.Fields[1].Offset)
	}

	player := NewBuilder("Player").
		Version(2).
		Scalar("id", KindU32).
		Bytes("name", 32).
		Nested("position", &vec3).
		Scalar("speed", KindF32).Editable().
		Scalar("flags", KindU32).
		Build()

	want := []uint32{0, 4, 36, 48, 52}
	for i, off := range want {
		if player.Fields[i].Offset != off {
			t.Errorf("field %s offset = %d, want %d", player.Fields[i].Name, player.Fields[i].Offset, off)
		}
	}
	if player.Size != 56 {
		t.Errorf("Player size = %d, want 56", player.Size)
	}
	if player.Version != 2 {
		t.Errorf("version = %d, want 2", player.Version)
	}
	if !player.Fields[3].Editable() || player.Fields[4].Editable() {
		t.Error("only speed should be editable")
	}
	if player.Fields[2].Ref != 0 || player.Fields[2].Kind != KindNested {
		t.Errorf("position should reference Vec3: %+v", player.Fields[2])
	}
	if player.FieldIndex("speed") != 3 || player.FieldIndex("nope") != -1 {
		t.Error("FieldIndex mismatch")
	}
	if err := player.Validate(MaxFields); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if got := len(player.New()); got != 56 {
		t.Errorf("New() len = %d, want 56", got)
	}
}

func TestFromRecord(t *testing.T) {
	vec3Def := &wit.TypeDef{Kind: &wit.Record{Fields: []wit.Field{
		{Name: "x", Type: wit.F32{}},
		{Name: "y", Type: wit.F32{}},
		{Name: "z", Type: wit.F32{}},
	}}}
	vec3, err := FromRecord("Vec3", vec3Def.Kind.(*wit.Record), nil)
	if err != nil {
		t.Fatalf("FromRecord(Vec3): %v", err)
	}
	vec3.ID = 7

	resolve := func(def *wit.TypeDef) (*Type, bool) {
		if def == vec3Def {
			return &vec3, true
		}
		return nil, false
	}

	transform, err := FromRecord("Transform", &wit.Record{Fields: []wit.Field{
		{Name: "position", Type: vec3Def},
		{Name: "rotation", Type: vec3Def},
		{Name: "scale", Type: wit.F32{}},
	}}, resolve)
	if err != nil {
		t.Fatalf("FromRecord(Transform): %v", err)
	}
	if transform.Size != 28 {
		t.Errorf("Transform size = %d, want 28", transform.Size)
	}
	if transform.Fields[1].Offset != 12 || transform.Fields[1].Ref != 7 {
		t.Errorf("rotation = %+v", transform.Fields[1])
	}

	_, err = FromRecord("Bad", &wit.Record{Fields: []wit.Field{{Name: "s", Type: wit.String{}}}}, nil)
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseRegister, Kind: errors.KindInvalidInput}) {
		t.Errorf("string field should be rejected, got %v", err)
	}

	_, err = FromRecord("Orphan", &wit.Record{Fields: []wit.Field{{Name: "p", Type: vec3Def}}}, nil)
	if err == nil {
		t.Error("nested record without resolver should fail")
	}
}

func TestValidate(t *testing.T) {
	base := func() Type {
		return NewBuilder("Health").
			Scalar("current", KindF32).
			Scalar("maximum", KindF32).
			Build()
	}

	t.Run("ok", func(t *testing.T) {
		ty := base()
		if err := ty.Validate(MaxFields); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("hash mismatch", func(t *testing.T) {
		ty := base()
		ty.Hash++
		if err := ty.Validate(MaxFields); err == nil {
			t.Fatal("expected hash mismatch")
		}
	})

	t.Run("field out of bounds", func(t *testing.T) {
		ty := base()
		ty.Fields[1].Offset = 6
		err := ty.Validate(MaxFields)
		if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseRegister, Kind: errors.KindOutOfBounds}) {
			t.Fatalf("expected out of bounds, got %v", err)
		}
	})

	t.Run("too many fields", func(t *testing.T) {
		ty := base()
		if err := ty.Validate(1); err == nil {
			t.Fatal("expected field count error")
		}
	})

	t.Run("kind width mismatch", func(t *testing.T) {
		ty := base()
		ty.Fields[0].Kind = KindU64
		if err := ty.Validate(MaxFields); err == nil {
			t.Fatal("expected width mismatch")
		}
	})

	t.Run("empty name", func(t *testing.T) {
		ty := Type{}
		if err := ty.Validate(MaxFields); err == nil {
			t.Fatal("expected empty name error")
		}
	})
}
