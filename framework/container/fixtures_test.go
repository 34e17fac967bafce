package container_test

import "errors"

// Component graph used across the resolver tests:
//
//	TestMod(SubA, SubB)
//	SubA(InstMod)
//	SubB(InstMod, SubBConf)
//	InstMod is a ready-made object, SubBConf is given data.
type InstMod struct{ ID int }

type SubBConf struct{ Name string }

type SubA struct{ Inst *InstMod }

type SubB struct {
	Inst *InstMod
	Conf SubBConf
}

type TestMod struct {
	A *SubA
	B *SubB
}

func NewSubA(i *InstMod) *SubA { return &SubA{Inst: i} }

func NewSubB(i *InstMod, c SubBConf) *SubB { return &SubB{Inst: i, Conf: c} }

func NewTestMod(a *SubA, b *SubB) *TestMod { return &TestMod{A: a, B: b} }

// Chain used to count passes: C3 needs C2 needs C1.
type C1 struct{}

type C2 struct{ Prev *C1 }

type C3 struct{ Prev *C2 }

// Cycle: CycA needs CycB and CycB needs CycA.
type CycA struct{ B *CycB }

type CycB struct{ A *CycA }

type Unavailable struct{}

type Greeter interface{ Greet() string }

type english struct{}

func (english) Greet() string { return "hello" }

var errBoom = errors.New("boom")
