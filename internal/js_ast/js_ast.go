package js_ast

import (
	"github.com/dat2/rpack/internal/logging"
)

// Every file is parsed into a separate AST. The tree is a strict tree: each
// node owns its children and nothing is shared between nodes, so a pass that
// rewrites part of a module must build new nodes instead of mutating shared
// ones.
//
// Expressions, statements, and bindings are closed sets of variants. Each set
// is an interface with an unexported marker method, so only the types in this
// file can be members and a type switch over them lists every case.

type L int

// https://developer.mozilla.org/en-US/docs/Web/JavaScript/Reference/Operators/Operator_Precedence
const (
	LLowest L = iota
	LComma
	LSpread
	LYield
	LAssign
	LConditional
	LNullishCoalescing
	LLogicalOr
	LLogicalAnd
	LBitwiseOr
	LBitwiseXor
	LBitwiseAnd
	LEquals
	LCompare
	LShift
	LAdd
	LMultiply
	LExponentiation
	LPrefix
	LPostfix
	LNew
	LCall
	LMember
)

type OpCode int

func (op OpCode) IsPrefix() bool {
	return op < UnOpPostDec
}

func (op OpCode) IsUnaryUpdate() bool {
	return op >= UnOpPreDec && op <= UnOpPostInc
}

func (op OpCode) IsLeftAssociative() bool {
	return op >= BinOpAdd && op < BinOpComma && op != BinOpPow
}

func (op OpCode) IsRightAssociative() bool {
	return op >= BinOpAssign || op == BinOpPow
}

func (op OpCode) IsAssign() bool {
	return op >= BinOpAssign
}

// If you add a new operator, remember to add it to "OpTable" too
const (
	// Prefix
	UnOpPos OpCode = iota
	UnOpNeg
	UnOpCpl
	UnOpNot
	UnOpVoid
	UnOpTypeof
	UnOpDelete

	// Prefix update
	UnOpPreDec
	UnOpPreInc

	// Postfix update
	UnOpPostDec
	UnOpPostInc

	// Left-associative
	BinOpAdd
	BinOpSub
	BinOpMul
	BinOpDiv
	BinOpRem
	BinOpPow
	BinOpLt
	BinOpLe
	BinOpGt
	BinOpGe
	BinOpIn
	BinOpInstanceof
	BinOpShl
	BinOpShr
	BinOpUShr
	BinOpLooseEq
	BinOpLooseNe
	BinOpStrictEq
	BinOpStrictNe
	BinOpNullishCoalescing
	BinOpLogicalOr
	BinOpLogicalAnd
	BinOpBitwiseOr
	BinOpBitwiseAnd
	BinOpBitwiseXor

	// Non-associative
	BinOpComma

	// Right-associative, only used by EAssign
	BinOpAssign
	BinOpAddAssign
	BinOpSubAssign
	BinOpMulAssign
	BinOpDivAssign
	BinOpRemAssign
	BinOpPowAssign
	BinOpShlAssign
	BinOpShrAssign
	BinOpUShrAssign
	BinOpBitwiseOrAssign
	BinOpBitwiseAndAssign
	BinOpBitwiseXorAssign
	BinOpNullishCoalescingAssign
	BinOpLogicalOrAssign
	BinOpLogicalAndAssign
)

type opTableEntry struct {
	Text      string
	Level     L
	IsKeyword bool
}

var OpTable = []opTableEntry{
	// Prefix
	{"+", LPrefix, false},
	{"-", LPrefix, false},
	{"~", LPrefix, false},
	{"!", LPrefix, false},
	{"void", LPrefix, true},
	{"typeof", LPrefix, true},
	{"delete", LPrefix, true},

	// Prefix update
	{"--", LPrefix, false},
	{"++", LPrefix, false},

	// Postfix update
	{"--", LPostfix, false},
	{"++", LPostfix, false},

	// Left-associative
	{"+", LAdd, false},
	{"-", LAdd, false},
	{"*", LMultiply, false},
	{"/", LMultiply, false},
	{"%", LMultiply, false},
	{"**", LExponentiation, false}, // Right-associative
	{"<", LCompare, false},
	{"<=", LCompare, false},
	{">", LCompare, false},
	{">=", LCompare, false},
	{"in", LCompare, true},
	{"instanceof", LCompare, true},
	{"<<", LShift, false},
	{">>", LShift, false},
	{">>>", LShift, false},
	{"==", LEquals, false},
	{"!=", LEquals, false},
	{"===", LEquals, false},
	{"!==", LEquals, false},
	{"??", LNullishCoalescing, false},
	{"||", LLogicalOr, false},
	{"&&", LLogicalAnd, false},
	{"|", LBitwiseOr, false},
	{"&", LBitwiseAnd, false},
	{"^", LBitwiseXor, false},

	// Non-associative
	{",", LComma, false},

	// Right-associative
	{"=", LAssign, false},
	{"+=", LAssign, false},
	{"-=", LAssign, false},
	{"*=", LAssign, false},
	{"/=", LAssign, false},
	{"%=", LAssign, false},
	{"**=", LAssign, false},
	{"<<=", LAssign, false},
	{">>=", LAssign, false},
	{">>>=", LAssign, false},
	{"|=", LAssign, false},
	{"&=", LAssign, false},
	{"^=", LAssign, false},
	{"??=", LAssign, false},
	{"||=", LAssign, false},
	{"&&=", LAssign, false},
}

type LocName struct {
	Loc  logging.Loc
	Name string
}

type PropertyKind int

const (
	PropertyNormal PropertyKind = iota
	PropertyGet
	PropertySet
	PropertySpread
)

type Property struct {
	Kind       PropertyKind
	IsComputed bool
	IsMethod   bool

	// "{a}" as opposed to "{a: a}"
	IsShorthand bool

	// This is absent for spread properties
	Key Expr

	// This is omitted for class fields
	Value *Expr
}

type PropertyBinding struct {
	IsComputed bool
	IsSpread   bool

	// "{a}" as opposed to "{a: a}"
	IsShorthand bool

	Key          Expr
	Value        Binding
	DefaultValue *Expr
}

type Arg struct {
	Binding Binding
	Default *Expr
}

type Fn struct {
	Name        *LocName
	Args        []Arg
	HasRestArg  bool
	IsGenerator bool
	Body        FnBody
}

type FnBody struct {
	Loc   logging.Loc
	Stmts []Stmt
}

type Binding struct {
	Loc  logging.Loc
	Data B
}

// This interface is never called. Its purpose is to encode a variant type in
// Go's type system.
type B interface{ isBinding() }

type BMissing struct{}

type BIdentifier struct{ Name string }

type BArray struct {
	Items     []ArrayBinding
	HasSpread bool
}

type BObject struct{ Properties []PropertyBinding }

func (*BMissing) isBinding()    {}
func (*BIdentifier) isBinding() {}
func (*BArray) isBinding()      {}
func (*BObject) isBinding()     {}

type ArrayBinding struct {
	Binding      Binding
	DefaultValue *Expr
}

type Expr struct {
	Loc  logging.Loc
	Data E
}

// This interface is never called. Its purpose is to encode a variant type in
// Go's type system.
type E interface{ isExpr() }

type EArray struct{ Items []Expr }

type EUnary struct {
	Op    OpCode
	Value Expr
}

type EBinary struct {
	Op    OpCode
	Left  Expr
	Right Expr
}

// The target of an assignment is either a plain expression ("a.b = c") or a
// destructuring pattern ("[a, b] = c").
type ExprOrBinding struct {
	Expr    *Expr
	Binding *Binding
}

type EAssign struct {
	Op     OpCode
	Target ExprOrBinding
	Value  Expr
}

type EBoolean struct{ Value bool }

type ESuper struct{}

type ENull struct{}

type EThis struct{}

type ENew struct {
	Target Expr
	Args   []Expr
}

type OptionalChain uint8

const (
	// "a.b"
	OptionalChainNone OptionalChain = iota

	// "a?.b"
	OptionalChainStart

	// "a?.b.c" => ".c" is OptionalChainContinue
	OptionalChainContinue
)

type ECall struct {
	Target        Expr
	Args          []Expr
	OptionalChain OptionalChain
}

type EDot struct {
	Target        Expr
	Name          string
	NameLoc       logging.Loc
	OptionalChain OptionalChain
}

type EIndex struct {
	Target        Expr
	Index         Expr
	OptionalChain OptionalChain
}

type EArrow struct {
	Args       []Arg
	HasRestArg bool
	Body       FnBody

	// "x => x" as opposed to "x => { return x }"
	PreferExpr bool
}

type EFunction struct{ Fn Fn }

type EIdentifier struct{ Name string }

// This is used to represent holes in array literals such as "[a, , b]"
type EMissing struct{}

type ENumber struct{ Value float64 }

type EString struct{ Value []uint16 }

type ERegExp struct {
	Pattern string
	Flags   string
}

type TemplatePart struct {
	Value      Expr
	TailLoc    logging.Loc
	TailCooked []uint16
	TailRaw    string
}

// The cooked values are nil when a tagged template contains an invalid escape
// sequence. The tag then sees undefined for that part.
type ETemplate struct {
	Tag        *Expr
	HeadLoc    logging.Loc
	HeadCooked []uint16
	HeadRaw    string
	Parts      []TemplatePart
}

type EObject struct{ Properties []Property }

type ESpread struct{ Value Expr }

type EYield struct {
	Value  *Expr
	IsStar bool
}

type EIf struct {
	Test Expr
	Yes  Expr
	No   Expr
}

func (*EArray) isExpr()      {}
func (*EUnary) isExpr()      {}
func (*EBinary) isExpr()     {}
func (*EAssign) isExpr()     {}
func (*EBoolean) isExpr()    {}
func (*ESuper) isExpr()      {}
func (*ENull) isExpr()       {}
func (*EThis) isExpr()       {}
func (*ENew) isExpr()        {}
func (*ECall) isExpr()       {}
func (*EDot) isExpr()        {}
func (*EIndex) isExpr()      {}
func (*EArrow) isExpr()      {}
func (*EFunction) isExpr()   {}
func (*EIdentifier) isExpr() {}
func (*EMissing) isExpr()    {}
func (*ENumber) isExpr()     {}
func (*EString) isExpr()     {}
func (*ERegExp) isExpr()     {}
func (*ETemplate) isExpr()   {}
func (*EObject) isExpr()     {}
func (*ESpread) isExpr()     {}
func (*EYield) isExpr()      {}
func (*EIf) isExpr()         {}

func IsOptionalChain(value Expr) bool {
	switch e := value.Data.(type) {
	case *EDot:
		return e.OptionalChain != OptionalChainNone
	case *EIndex:
		return e.OptionalChain != OptionalChainNone
	case *ECall:
		return e.OptionalChain != OptionalChainNone
	}
	return false
}

func JoinWithComma(a Expr, b Expr) Expr {
	return Expr{Loc: a.Loc, Data: &EBinary{Op: BinOpComma, Left: a, Right: b}}
}

type Stmt struct {
	Loc  logging.Loc
	Data S
}

// This interface is never called. Its purpose is to encode a variant type in
// Go's type system.
type S interface{ isStmt() }

type SBlock struct{ Stmts []Stmt }

type SEmpty struct{}

type SDebugger struct{}

type SExpr struct{ Value Expr }

type SFunction struct{ Fn Fn }

type SLabel struct {
	Name LocName
	Stmt Stmt
}

type SBreak struct{ Label *LocName }

type SContinue struct{ Label *LocName }

type SIf struct {
	Test Expr
	Yes  Stmt
	No   *Stmt
}

type Case struct {
	// This is nil for the "default" case
	Value *Expr
	Body  []Stmt
}

type SSwitch struct {
	Test  Expr
	Cases []Case
}

type SThrow struct{ Value Expr }

type Catch struct {
	Loc     logging.Loc
	Binding *Binding
	Body    []Stmt
}

type Finally struct {
	Loc   logging.Loc
	Stmts []Stmt
}

type STry struct {
	Body    []Stmt
	Catch   *Catch
	Finally *Finally
}

type SWhile struct {
	Test Expr
	Body Stmt
}

type SDoWhile struct {
	Body Stmt
	Test Expr
}

type SFor struct {
	Init   *Stmt // May be an SLocal or an SExpr
	Test   *Expr
	Update *Expr
	Body   Stmt
}

// The left side of a for-in or for-of loop is either a fresh declaration
// ("for (var x of y)") or an existing assignment target ("for (x.y of z)",
// "for ([a, b] of z)"). Exactly one of the two fields is set.
type ForInOfInit struct {
	Local  *SLocal
	Target ExprOrBinding
}

type SForIn struct {
	Init  ForInOfInit
	Value Expr
	Body  Stmt
}

type SForOf struct {
	Init  ForInOfInit
	Value Expr
	Body  Stmt
}

type SReturn struct{ Value *Expr }

type LocalKind uint8

const (
	LocalVar LocalKind = iota
	LocalLet
	LocalConst
)

func (kind LocalKind) String() string {
	switch kind {
	case LocalLet:
		return "let"
	case LocalConst:
		return "const"
	default:
		return "var"
	}
}

type Decl struct {
	Binding Binding
	Value   *Expr
}

type SLocal struct {
	Kind  LocalKind
	Decls []Decl
}

type ClauseItem struct {
	// The name exported by the imported module
	Alias    string
	AliasLoc logging.Loc

	// The local binding
	Name LocName
}

// This is the statement-level import declaration. The forms are:
//
//   import "path"
//   import name from "path"
//   import * as ns from "path"
//   import {a, b as c} from "path"
//   import name, {a} from "path"
//   import name, * as ns from "path"
//
type SImport struct {
	DefaultName   *LocName
	Items         *[]ClauseItem
	NamespaceName *LocName
	Path          string
	PathLoc       logging.Loc
}

func (*SBlock) isStmt()    {}
func (*SEmpty) isStmt()    {}
func (*SDebugger) isStmt() {}
func (*SExpr) isStmt()     {}
func (*SFunction) isStmt() {}
func (*SLabel) isStmt()    {}
func (*SBreak) isStmt()    {}
func (*SContinue) isStmt() {}
func (*SIf) isStmt()       {}
func (*SSwitch) isStmt()   {}
func (*SThrow) isStmt()    {}
func (*STry) isStmt()      {}
func (*SWhile) isStmt()    {}
func (*SDoWhile) isStmt()  {}
func (*SFor) isStmt()      {}
func (*SForIn) isStmt()    {}
func (*SForOf) isStmt()    {}
func (*SReturn) isStmt()   {}
func (*SLocal) isStmt()    {}
func (*SImport) isStmt()   {}

type SourceType uint8

const (
	SourceTypeScript SourceType = iota
	SourceTypeModule
)

func (t SourceType) String() string {
	if t == SourceTypeModule {
		return "module"
	}
	return "script"
}

// The parsed form of one file. The statement order is execution order and
// must be preserved when printing.
type AST struct {
	SourceType SourceType
	Hashbang   string
	Stmts      []Stmt
}

// Returns the top-level import statements in source order. Imports are only
// allowed at the top level, so this is every import in the file.
func (tree *AST) Imports() []*SImport {
	var imports []*SImport
	for _, stmt := range tree.Stmts {
		if s, ok := stmt.Data.(*SImport); ok {
			imports = append(imports, s)
		}
	}
	return imports
}
