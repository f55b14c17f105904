package flatten

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatasetKey(t *testing.T) {
	cases := []struct {
		prefix, name, want string
	}{
		{"icos", "HTM_CO2.csv", "icos_HTM_CO2"},
		{"icos", "ICOS_ATC_L2_L2-2021.1_HTM_150.0_CTS.CO2.zip", "icos_ICOS_ATC_L2_L2_2021_1_HTM_150_0_CTS_CO2"},
		{"", "dir/sub/file name.csv", "file_name"},
		{"icos", `C:\data\a-b.csv`, "icos_a_b"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DatasetKey(tc.prefix, tc.name))
		})
	}
}

func TestVariableKey(t *testing.T) {
	assert.Equal(t, "Temperature", VariableKey("Temperature [degC]"))
	assert.Equal(t, "co2", VariableKey("co2 [µmol mol-1]"))
	assert.Equal(t, "SamplingHeight", VariableKey("  SamplingHeight  "))
	assert.Equal(t, "Flag", VariableKey("Flag [] "))
}

func TestFlatRecord_AddAndExport(t *testing.T) {
	r := FlatRecord{}
	r.Add("k", "a", "b", "a")
	r.Add("k", "b", "c")
	r.Add("single", "x")

	assert.Equal(t, []string{"a", "b", "c"}, r["k"])
	assert.Equal(t, []string{"k", "single"}, r.Keys())
	assert.Equal(t, map[string]any{"k": []any{"a", "b", "c"}, "single": "x"}, r.Export())
}

func TestOptions_Defaults(t *testing.T) {
	o := Options{}.withDefaults()
	assert.Equal(t, "_", o.Separator)
	assert.Equal(t, DefaultBlocklist, o.Blocklist)
	assert.Equal(t, map[string]string{"type_units": "units"}, o.Renames)
	assert.Equal(t, DefaultMaxDepth, o.MaxDepth)
	assert.Equal(t, "icos", o.DatasetPrefix)

	o = Options{Separator: "."}.withDefaults()
	assert.Equal(t, map[string]string{"type.units": "units"}, o.Renames)
}

func TestCatalog_KeyReuse(t *testing.T) {
	c := NewCatalog()
	assert.Empty(t, c.Put(KindVariable, "co2", "id1", FlatRecord{"a": {"1"}}))
	assert.Equal(t, "id1", c.Put(KindVariable, "co2", "id2", FlatRecord{"a": {"2"}}))
	c.Put(KindDataset, "co2", "id3", FlatRecord{"b": {"3"}})

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, []string{"2"}, c.Variables["co2"]["a"])
	assert.Equal(t, FlatRecord{"a": {"2"}}, c.All()["co2"], "variables shadow datasets")
}
