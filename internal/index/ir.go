package index

// ExprKind tags the variant held by an Expr.
type ExprKind uint8

const (
	ExprOther ExprKind = iota
	ExprIdent
	ExprFieldAccess
	ExprThis
	ExprSuper
	ExprCall
	ExprNew
	ExprMethodRef
	ExprLambda
	ExprCast
	ExprParen
	ExprLiteral
	ExprAssign
)

var exprKindNames = [...]string{
	ExprOther:       "other",
	ExprIdent:       "ident",
	ExprFieldAccess: "field_access",
	ExprThis:        "this",
	ExprSuper:       "super",
	ExprCall:        "call",
	ExprNew:         "new",
	ExprMethodRef:   "method_ref",
	ExprLambda:      "lambda",
	ExprCast:        "cast",
	ExprParen:       "paren",
	ExprLiteral:     "literal",
	ExprAssign:      "assign",
}

func (k ExprKind) String() string {
	if int(k) < len(exprKindNames) {
		return exprKindNames[k]
	}
	return "unknown"
}

// Expr is one node of the body IR. Which fields are meaningful depends on Kind:
//
//	Ident        Name
//	FieldAccess  X.Name
//	Call         X.Name(Args), X may be nil
//	New          new Type(Args)
//	MethodRef    X::Name, Name is "new" for constructor references
//	Lambda       (Params) -> Body
//	Cast         (Type) X
//	Paren        (X)
//	Literal      Name holds the literal text, Type its type when known
//	Assign       X = Args[0]
//	Other        operands in Args (binary, unary, ternary, array access...)
type Expr struct {
	Kind   ExprKind `json:"k"`
	Name   string   `json:"n,omitempty"`
	X      *Expr    `json:"x,omitempty"`
	Args   []*Expr  `json:"a,omitempty"`
	Type   TypeRef  `json:"t,omitempty"`
	Params []string `json:"p,omitempty"`
	Body   []*Stmt  `json:"b,omitempty"`
	Line   int      `json:"l,omitempty"`
}

// StmtKind tags the variant held by a Stmt.
type StmtKind uint8

const (
	StmtExpr StmtKind = iota
	StmtReturn
	StmtLocal
	StmtIf
	StmtLoop
	StmtForEach
	StmtThrow
	StmtBlock
	StmtTry
	StmtSwitch
)

// Stmt is one statement of the body IR.
//
//	Expr     Expr
//	Return   Expr (may be nil)
//	Local    Type Name = Expr (Expr may be nil)
//	If       if (Expr) Body else Else
//	Loop     while/for/do: Expr is the condition, Body the loop body
//	ForEach  for (Type Name : Expr) Body
//	Throw    Expr
//	Block    Body
//	Try      Body, with catch/finally blocks in Else
//	Switch   switch (Expr) Body
type Stmt struct {
	Kind StmtKind `json:"k"`
	Expr *Expr    `json:"e,omitempty"`
	Name string   `json:"n,omitempty"`
	Type TypeRef  `json:"t,omitempty"`
	Body []*Stmt  `json:"b,omitempty"`
	Else []*Stmt  `json:"x,omitempty"`
	Line int      `json:"l,omitempty"`
}

// Block is a method body.
type Block struct {
	Stmts []*Stmt `json:"s"`
}

// Constructors used by the parser and by tests.

func Ident(name string) *Expr { return &Expr{Kind: ExprIdent, Name: name} }

func This() *Expr { return &Expr{Kind: ExprThis} }

func Super() *Expr { return &Expr{Kind: ExprSuper} }

func FieldOf(x *Expr, name string) *Expr { return &Expr{Kind: ExprFieldAccess, X: x, Name: name} }

func Call(x *Expr, name string, args ...*Expr) *Expr {
	return &Expr{Kind: ExprCall, X: x, Name: name, Args: args}
}

func New(t TypeRef, args ...*Expr) *Expr { return &Expr{Kind: ExprNew, Type: t, Args: args} }

func MethodRef(x *Expr, name string) *Expr { return &Expr{Kind: ExprMethodRef, X: x, Name: name} }

func Lambda(params []string, body ...*Stmt) *Expr {
	return &Expr{Kind: ExprLambda, Params: params, Body: body}
}

func Cast(t TypeRef, x *Expr) *Expr { return &Expr{Kind: ExprCast, Type: t, X: x} }

func Paren(x *Expr) *Expr { return &Expr{Kind: ExprParen, X: x} }

func Lit(text string) *Expr { return &Expr{Kind: ExprLiteral, Name: text} }

func StringLit(text string) *Expr {
	return &Expr{Kind: ExprLiteral, Name: text, Type: TypeRef{Name: "java.lang.String"}}
}

func Assign(target, value *Expr) *Expr {
	return &Expr{Kind: ExprAssign, X: target, Args: []*Expr{value}}
}

func Op(operands ...*Expr) *Expr { return &Expr{Kind: ExprOther, Args: operands} }

func ExprStmt(e *Expr) *Stmt { return &Stmt{Kind: StmtExpr, Expr: e} }

func Return(e *Expr) *Stmt { return &Stmt{Kind: StmtReturn, Expr: e} }

func Local(t TypeRef, name string, init *Expr) *Stmt {
	return &Stmt{Kind: StmtLocal, Type: t, Name: name, Expr: init}
}

func If(cond *Expr, then []*Stmt, els ...*Stmt) *Stmt {
	return &Stmt{Kind: StmtIf, Expr: cond, Body: then, Else: els}
}

func ForEach(t TypeRef, name string, iterable *Expr, body ...*Stmt) *Stmt {
	return &Stmt{Kind: StmtForEach, Type: t, Name: name, Expr: iterable, Body: body}
}

func Throw(e *Expr) *Stmt { return &Stmt{Kind: StmtThrow, Expr: e} }

// NewBlock wraps statements into a body.
func NewBlock(stmts ...*Stmt) *Block { return &Block{Stmts: stmts} }

// Ref builds a TypeRef from a name and optional generic arguments.
func Ref(name string, args ...TypeRef) TypeRef { return TypeRef{Name: name, Args: args} }

// Unwrap strips parentheses and casts.
func Unwrap(e *Expr) *Expr {
	for e != nil && (e.Kind == ExprParen || e.Kind == ExprCast) {
		e = e.X
	}
	return e
}

// Visitor callbacks for WalkStmts. Returning false from Expr skips the
// expression's children.
type Visitor struct {
	Stmt func(s *Stmt)
	Expr func(e *Expr) bool
	// PostExpr runs after an expression's children.
	PostExpr func(e *Expr)
}

// WalkStmts walks statements depth first, descending into lambda bodies.
func WalkStmts(stmts []*Stmt, v Visitor) {
	for _, s := range stmts {
		walkStmt(s, v)
	}
}

// WalkExpr walks a single expression tree.
func WalkExpr(e *Expr, v Visitor) { walkExpr(e, v) }

func walkStmt(s *Stmt, v Visitor) {
	if s == nil {
		return
	}
	if v.Stmt != nil {
		v.Stmt(s)
	}
	walkExpr(s.Expr, v)
	WalkStmts(s.Body, v)
	WalkStmts(s.Else, v)
}

func walkExpr(e *Expr, v Visitor) {
	if e == nil {
		return
	}
	if v.Expr != nil && !v.Expr(e) {
		return
	}
	walkExpr(e.X, v)
	for _, a := range e.Args {
		walkExpr(a, v)
	}
	WalkStmts(e.Body, v)
	if v.PostExpr != nil {
		v.PostExpr(e)
	}
}
