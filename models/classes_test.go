package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYOLOClasses(t *testing.T) {
	require.Len(t, YOLOClasses.Classes, 80)
	for i, c := range YOLOClasses.Classes {
		assert.Equal(t, i, c.Index, "class %q must sit at its index", c.Name)
	}

	names := YOLOClasses.Names()
	assert.Equal(t, "person", names[0])
	assert.Equal(t, "toothbrush", names[79])
}

func TestCOCOClassesOffsetByBackground(t *testing.T) {
	require.Len(t, COCOClasses.Classes, 81)
	assert.Equal(t, "__background__", LookupName(ModelFamilyCOCO, 0))
	assert.Equal(t, LookupName(ModelFamilyYOLO, 0), LookupName(ModelFamilyCOCO, 1))
}

func TestOutputClassSetLookups(t *testing.T) {
	idx, err := YOLOClasses.GetIndex("dog")
	require.NoError(t, err)
	assert.Equal(t, 16, idx)

	_, err = YOLOClasses.GetIndex("unicorn")
	assert.Error(t, err)

	_, err = YOLOClasses.GetName(80)
	assert.Error(t, err)

	assert.Equal(t, "", LookupName(ModelFamilyYOLO, -1))
	assert.Equal(t, "", LookupName(ModelFamily("voc"), 0))
}
