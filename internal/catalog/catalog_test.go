package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/lumagraph-labs/lumagraph/pkg/core"
)

var sampleSpecs = []core.OperationSpec{
	{
		Name:        "gaussian_blur",
		DisplayName: "Gaussian Blur",
		Category:    "Filters",
		Params: []core.ParamSpec{
			{Name: "radius", Type: core.ParamFloat, Default: 2.0, Min: 0, Max: 50},
			{Name: "preserve_alpha", Type: core.ParamBool, Default: true},
		},
	},
	{
		Name:        "canny",
		DisplayName: "Canny Edge Detection",
		Category:    "Edge Detection",
		Params: []core.ParamSpec{
			{Name: "threshold", Type: core.ParamRange, DefaultLow: 0.1, DefaultHigh: 0.3},
		},
	},
	{
		Name:        "otsu_threshold",
		DisplayName: "Otsu Threshold",
		Category:    "Edge Detection",
	},
}

func sampleCatalog() *Catalog {
	c := New()
	c.Replace(sampleSpecs, []string{"Filters", "Edge Detection"})
	return c
}

func TestListSortsByCategoryThenName(t *testing.T) {
	c := sampleCatalog()
	specs := c.List()
	want := []string{"canny", "otsu_threshold", "gaussian_blur"}
	if len(specs) != len(want) {
		t.Fatalf("expected %d specs, got %d", len(want), len(specs))
	}
	for i, name := range want {
		if specs[i].Name != name {
			t.Errorf("position %d: expected %s, got %s", i, name, specs[i].Name)
		}
	}
}

func TestResolveParamsFillsDefaults(t *testing.T) {
	c := sampleCatalog()

	resolved, err := c.ResolveParams("gaussian_blur", nil)
	if err != nil {
		t.Fatal(err)
	}
	if resolved["radius"] != 2.0 {
		t.Errorf("expected default radius 2.0, got %v", resolved["radius"])
	}
	if resolved["preserve_alpha"] != true {
		t.Errorf("expected default preserve_alpha true, got %v", resolved["preserve_alpha"])
	}
}

func TestResolveParamsKeepsProvidedAndDropsUnknown(t *testing.T) {
	c := sampleCatalog()

	resolved, err := c.ResolveParams("gaussian_blur", map[string]any{
		"radius":  8.0,
		"unknown": "x",
	})
	if err != nil {
		t.Fatal(err)
	}
	if resolved["radius"] != 8.0 {
		t.Errorf("provided radius lost: %v", resolved["radius"])
	}
	if _, ok := resolved["unknown"]; ok {
		t.Error("unspecced parameter must be dropped")
	}
}

func TestResolveParamsExpandsRange(t *testing.T) {
	c := sampleCatalog()

	resolved, err := c.ResolveParams("canny", nil)
	if err != nil {
		t.Fatal(err)
	}
	if resolved["threshold_low"] != 0.1 || resolved["threshold_high"] != 0.3 {
		t.Errorf("range defaults not expanded: %v", resolved)
	}

	resolved, err = c.ResolveParams("canny", map[string]any{"threshold_low": 0.2})
	if err != nil {
		t.Fatal(err)
	}
	if resolved["threshold_low"] != 0.2 || resolved["threshold_high"] != 0.3 {
		t.Errorf("partial range override wrong: %v", resolved)
	}
}

func TestResolveParamsUnknownOperation(t *testing.T) {
	c := sampleCatalog()
	if _, err := c.ResolveParams("teleport", nil); err == nil {
		t.Error("expected error for unknown operation")
	}
}

type fakeSource struct {
	specs      []core.OperationSpec
	categories []string
	err        error
}

func (f *fakeSource) ListOperations(ctx context.Context) ([]core.OperationSpec, []string, error) {
	return f.specs, f.categories, f.err
}

func TestRefresh(t *testing.T) {
	c := New()
	src := &fakeSource{specs: sampleSpecs, categories: []string{"Filters"}}
	if err := c.Refresh(context.Background(), src); err != nil {
		t.Fatal(err)
	}
	if c.Len() != 3 {
		t.Errorf("expected 3 operations, got %d", c.Len())
	}
}

func TestRefreshKeepsSnapshotOnError(t *testing.T) {
	c := sampleCatalog()
	src := &fakeSource{err: errors.New("backend down")}
	if err := c.Refresh(context.Background(), src); err == nil {
		t.Fatal("expected error")
	}
	if c.Len() != 3 {
		t.Error("failed refresh must not clear the catalog")
	}
}
