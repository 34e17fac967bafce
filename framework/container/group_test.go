package container_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/katapult/framework/container"
)

func scenario() []container.Descriptor {
	return []container.Descriptor{
		container.New2(NewTestMod),
		container.New1(NewSubA),
		container.New2(NewSubB),
		container.Object(&InstMod{}),
	}
}

func indexOf(g *container.Group, t reflect.Type) int {
	for i, gt := range g.Types {
		if gt == t {
			return i
		}
	}
	return -1
}

func permutations(ds []container.Descriptor) [][]container.Descriptor {
	if len(ds) <= 1 {
		return [][]container.Descriptor{append([]container.Descriptor(nil), ds...)}
	}
	var out [][]container.Descriptor
	for i := range ds {
		rest := make([]container.Descriptor, 0, len(ds)-1)
		rest = append(rest, ds[:i]...)
		rest = append(rest, ds[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]container.Descriptor{ds[i]}, p...))
		}
	}
	return out
}

// ── The module scenario ───────────────────────────────────────────────────────

func TestResolveGroup_Scenario(t *testing.T) {
	r := container.NewResolver(nil)

	g, err := r.ResolveGroup(scenario(), SubBConf{Name: "conf"})
	require.NoError(t, err)
	require.Equal(t, 4, g.Len())

	mod, ok := container.Get[*TestMod](g)
	require.True(t, ok)
	inst, ok := container.Get[*InstMod](g)
	require.True(t, ok)
	assert.Same(t, inst, mod.A.Inst)
	assert.Same(t, inst, mod.B.Inst)
	assert.Equal(t, "conf", mod.B.Conf.Name)

	_, ok = container.Get[SubBConf](g)
	assert.False(t, ok, "given data is not part of the group")
}

func TestResolveGroup_Scenario_MissingConf(t *testing.T) {
	r := container.NewResolver(nil)

	_, err := r.ResolveGroup(scenario())
	require.Error(t, err)

	var ue *container.UnresolvedDependenciesError
	require.ErrorAs(t, err, &ue)
	assert.ElementsMatch(t, []reflect.Type{
		container.TypeOf[*TestMod](),
		container.TypeOf[*SubB](),
	}, ue.Components)
	assert.Equal(t, container.TypeOf[SubBConf](), ue.Missing[container.TypeOf[*SubB]()])
	assert.Equal(t, container.TypeOf[*SubB](), ue.Missing[container.TypeOf[*TestMod]()])
}

func TestResolveGroup_Scenario_DuplicateDescriptor(t *testing.T) {
	r := container.NewResolver(nil)
	ds := append(scenario(), container.New2(NewSubB))

	_, err := r.ResolveGroup(ds, SubBConf{})

	var de *container.DuplicateConfigurationError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, container.RoleDescriptors, de.Role)
	assert.Equal(t, container.TypeOf[*SubB](), de.Type)
}

func TestResolveGroup_Scenario_DuplicateGiven(t *testing.T) {
	r := container.NewResolver(nil)

	_, err := r.ResolveGroup(scenario(), SubBConf{Name: "a"}, SubBConf{Name: "b"})

	var de *container.DuplicateConfigurationError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, container.RoleGiven, de.Role)
	assert.ErrorIs(t, err, container.ErrDuplicateConfiguration)
}

// ── Pre-checks run before any constructor ─────────────────────────────────────

func TestResolveGroup_PrechecksBeforeConstruction(t *testing.T) {
	calls := 0
	counting := container.New(func() *C1 {
		calls++
		return &C1{}
	})
	r := container.NewResolver(nil)

	cases := []struct {
		name  string
		ds    []container.Descriptor
		given []any
	}{
		{"duplicate given", []container.Descriptor{counting}, []any{SubBConf{}, SubBConf{}}},
		{"duplicate descriptor", []container.Descriptor{counting, container.New1(NewSubA), container.New1(NewSubA)}, nil},
		{"overlap", []container.Descriptor{counting, container.Object(SubBConf{})}, []any{SubBConf{}}},
		{"invalid component", []container.Descriptor{counting, container.Component[*SubA]()}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.ResolveGroup(tc.ds, tc.given...)
			require.Error(t, err)
			assert.Zero(t, calls)
		})
	}
}

func TestResolveGroup_InvalidComponentReportedFirst(t *testing.T) {
	r := container.NewResolver(nil)
	ds := []container.Descriptor{container.New1(NewSubA), container.New1(NewSubA), container.Component[*SubB]()}

	_, err := r.ResolveGroup(ds, SubBConf{}, SubBConf{})

	assert.ErrorIs(t, err, container.ErrInvalidComponent)
}

func TestResolveGroup_Overlap(t *testing.T) {
	r := container.NewResolver(nil)

	_, err := r.ResolveGroup([]container.Descriptor{container.Object(SubBConf{})}, SubBConf{})

	var de *container.DuplicateConfigurationError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, container.RoleOverlap, de.Role)
}

// ── Ordering and termination ──────────────────────────────────────────────────

func TestResolveGroup_AnyInputOrder(t *testing.T) {
	r := container.NewResolver(nil)

	for _, ds := range permutations(scenario()) {
		g, err := r.ResolveGroup(ds, SubBConf{})
		require.NoError(t, err)
		require.Equal(t, 4, g.Len())

		inst := indexOf(g, container.TypeOf[*InstMod]())
		a := indexOf(g, container.TypeOf[*SubA]())
		b := indexOf(g, container.TypeOf[*SubB]())
		mod := indexOf(g, container.TypeOf[*TestMod]())
		assert.Less(t, inst, a)
		assert.Less(t, inst, b)
		assert.Less(t, a, mod)
		assert.Less(t, b, mod)
		assert.LessOrEqual(t, g.Passes, len(ds))
	}
}

func TestResolveGroup_ReverseChainTakesNPasses(t *testing.T) {
	r := container.NewResolver(nil)
	ds := []container.Descriptor{
		container.New1(func(p *C2) *C3 { return &C3{Prev: p} }),
		container.New1(func(p *C1) *C2 { return &C2{Prev: p} }),
		container.New(func() *C1 { return &C1{} }),
	}

	g, err := r.ResolveGroup(ds)
	require.NoError(t, err)
	assert.Equal(t, 3, g.Passes)
	assert.Equal(t, []reflect.Type{
		container.TypeOf[*C1](),
		container.TypeOf[*C2](),
		container.TypeOf[*C3](),
	}, g.Types)
}

func TestResolveGroup_AllUnresolvable(t *testing.T) {
	r := container.NewResolver(nil)
	ds := []container.Descriptor{
		container.New1(func(Unavailable) *C1 { return &C1{} }),
		container.New1(func(Unavailable) *C2 { return &C2{} }),
		container.New1(func(Unavailable) *C3 { return &C3{} }),
	}

	_, err := r.ResolveGroup(ds)

	var ue *container.UnresolvedDependenciesError
	require.ErrorAs(t, err, &ue)
	assert.Len(t, ue.Components, 3)
	for _, c := range ue.Components {
		assert.Equal(t, container.TypeOf[Unavailable](), ue.Missing[c])
	}
	assert.Contains(t, err.Error(), "container_test.Unavailable")
}

func TestResolveGroup_CycleRejected(t *testing.T) {
	r := container.NewResolver(nil)
	ds := []container.Descriptor{
		container.New1(func(b *CycB) *CycA { return &CycA{B: b} }),
		container.New1(func(a *CycA) *CycB { return &CycB{A: a} }),
	}

	_, err := r.ResolveGroup(ds)

	assert.ErrorIs(t, err, container.ErrUnresolvedDependencies)
}

func TestResolveGroup_Empty(t *testing.T) {
	r := container.NewResolver(nil)

	g, err := r.ResolveGroup(nil, SubBConf{})
	require.NoError(t, err)
	assert.Zero(t, g.Len())
	assert.Zero(t, g.Passes)
}

func TestResolveGroup_RegistryFallback(t *testing.T) {
	c := container.NewContainer()
	container.Instance(c, SubBConf{Name: "registry"})
	r := container.NewResolver(c)

	g, err := r.ResolveGroup(scenario())
	require.NoError(t, err)

	mod, _ := container.Get[*TestMod](g)
	assert.Equal(t, "registry", mod.B.Conf.Name)
}

func TestResolveGroup_ConstructorFailureAborts(t *testing.T) {
	r := container.NewResolver(nil)
	ds := []container.Descriptor{
		container.New(func() *C1 { return &C1{} }),
		container.NewE(func() (*C2, error) { return nil, errBoom }),
	}

	_, err := r.ResolveGroup(ds)

	assert.ErrorIs(t, err, errBoom)
}

func TestResolveGroup_Idempotent(t *testing.T) {
	r := container.NewResolver(nil)

	first, err := r.ResolveGroup(scenario(), SubBConf{Name: "x"})
	require.NoError(t, err)
	second, err := r.ResolveGroup(scenario(), SubBConf{Name: "x"})
	require.NoError(t, err)

	assert.Equal(t, first.Types, second.Types)
	assert.Equal(t, first.Passes, second.Passes)
	assert.Equal(t, first.Instances, second.Instances)
}

func TestResolveGroup_InterfaceDeclaredComponent(t *testing.T) {
	r := container.NewResolver(nil)
	type Speaker struct{ G Greeter }
	ds := []container.Descriptor{
		container.New1(func(g Greeter) *Speaker { return &Speaker{G: g} }),
		container.Component[Greeter](func() english { return english{} }),
	}

	g, err := r.ResolveGroup(ds)
	require.NoError(t, err)

	s, ok := container.Get[*Speaker](g)
	require.True(t, ok)
	assert.Equal(t, "hello", s.G.Greet())
}
