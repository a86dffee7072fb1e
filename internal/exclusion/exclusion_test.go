package exclusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	herrors "github.com/koltyakov/pgindexhealth/internal/errors"
	"github.com/koltyakov/pgindexhealth/internal/model"
)

var (
	smallTable = model.Table{Name: "t_small", SizeBytes: 100}
	bigTable   = model.Table{Name: "t_big", SizeBytes: 1 << 20}
	idxA       = model.IndexWithSize{Index: model.Index{Table: "t_big", Name: "idx_a"}, SizeBytes: 10}
	idxB       = model.IndexWithSize{Index: model.Index{Table: "t_big", Name: "idx_b"}, SizeBytes: 1 << 20}
	dup        = model.NewDuplicatedIndexes("t_big", []model.IndexWithSize{idxA, idxB})
	lowBloat   = model.TableWithBloat{Table: bigTable, BloatBytes: 100, BloatPct: 5}
	highBloat  = model.TableWithBloat{Table: bigTable, BloatBytes: 1 << 19, BloatPct: 50}
	column     = model.Column{Table: "t_big", Name: "payload"}
	sequence   = model.SequenceState{Name: "seq", DataType: "integer", RemainingPercentage: 3}
)

func TestAnd(t *testing.T) {
	assert.True(t, And()(smallTable))
	assert.True(t, And(nil, AcceptAll)(smallTable))

	rejectSmall := func(o model.DbObject) bool { return o.ObjectName() != "t_small" }
	rejectBig := func(o model.DbObject) bool { return o.ObjectName() != "t_big" }

	p := And(rejectSmall, rejectBig)
	assert.False(t, p(smallTable))
	assert.False(t, p(bigTable))
	assert.True(t, p(column))
}

func TestSkipByName(t *testing.T) {
	p := SkipByName("T_SMALL", "t_big.payload", " ")
	assert.False(t, p(smallTable))
	assert.True(t, p(bigTable))
	assert.False(t, p(column))

	assert.True(t, SkipByName()(smallTable))
}

func TestSkipTablesByName(t *testing.T) {
	p := SkipTablesByName("t_big")
	assert.True(t, p(smallTable))
	assert.False(t, p(bigTable))
	assert.False(t, p(idxA))
	assert.False(t, p(dup))
	assert.False(t, p(column))
	assert.True(t, p(sequence))
}

func TestSkipIndexesByName(t *testing.T) {
	p := SkipIndexesByName("idx_b")
	assert.True(t, p(idxA))
	assert.False(t, p(idxB))
	assert.False(t, p(dup), "group containing a skipped index")
	assert.True(t, p(bigTable))
}

func TestSkipSmallTables(t *testing.T) {
	p := SkipSmallTables(1024)
	assert.False(t, p(smallTable))
	assert.True(t, p(bigTable))
	assert.True(t, p(idxA), "indexes are not table-size aware")

	assert.True(t, SkipSmallTables(0)(smallTable))
}

func TestSkipSmallIndexes(t *testing.T) {
	p := SkipSmallIndexes(1024)
	assert.False(t, p(idxA))
	assert.True(t, p(idxB))
	assert.True(t, p(dup), "total size counts for groups")
	assert.True(t, p(smallTable))
}

func TestSkipBloatUnderThreshold(t *testing.T) {
	tests := []struct {
		name    string
		size    int64
		pct     float64
		obj     model.DbObject
		expects bool
	}{
		{name: "disabled", obj: lowBloat, expects: true},
		{name: "below percentage", pct: 10, obj: lowBloat, expects: false},
		{name: "above percentage", pct: 10, obj: highBloat, expects: true},
		{name: "below size", size: 1024, obj: lowBloat, expects: false},
		{name: "both satisfied", size: 1024, pct: 10, obj: highBloat, expects: true},
		{name: "not bloat aware", size: 1024, pct: 10, obj: bigTable, expects: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expects, SkipBloatUnderThreshold(tt.size, tt.pct)(tt.obj))
		})
	}
}

func TestApply(t *testing.T) {
	objs := []model.DbObject{smallTable, bigTable, column}
	assert.Equal(t, []model.DbObject{bigTable, column}, Apply(SkipSmallTables(1024), objs))
	assert.Equal(t, objs, Apply(nil, objs))
	assert.NotNil(t, Apply(AcceptAll, nil))
}

func TestBuild(t *testing.T) {
	p := Build(Config{
		Tables:             []string{"t_small"},
		Indexes:            []string{"idx_a"},
		IndexSizeThreshold: 100,
	}, model.DefaultSchemaContext())

	assert.False(t, p(smallTable))
	assert.True(t, p(bigTable))
	assert.False(t, p(idxA))
	assert.True(t, p(idxB))

	assert.True(t, Build(Config{}, model.DefaultSchemaContext())(smallTable))
}

func TestBuildQualifiesNamesWithSchema(t *testing.T) {
	sc, err := model.ForSchema("audit")
	require.NoError(t, err)

	p := Build(Config{Tables: []string{"events"}}, sc)
	assert.False(t, p(model.Table{Name: "audit.events"}))
	assert.True(t, p(model.Table{Name: "public.events"}))
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{}.Validate())

	err := Config{TableSizeThreshold: -1, BloatPercentageThreshold: 120}.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, herrors.ErrInvalidConfig)

	var me *herrors.MultiError
	require.ErrorAs(t, err, &me)
	assert.Len(t, me.Errors, 2)
}
