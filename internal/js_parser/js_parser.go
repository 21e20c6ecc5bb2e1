package js_parser

import (
	"fmt"

	"github.com/dat2/rpack/internal/js_ast"
	"github.com/dat2/rpack/internal/js_lexer"
	"github.com/dat2/rpack/internal/logging"
)

// This parser is a single pass over the token stream that produces the AST
// directly. There is no scope analysis or symbol binding since the bundler
// only needs to rewrite top-level import statements. Every syntax error is
// fatal for the file: the error is logged and a "LexerPanic" unwinds back to
// "Parse".

type parser struct {
	log                      logging.Log
	source                   logging.Source
	lexer                    js_lexer.Lexer
	allowIn                  bool
	fnOpts                   fnOpts
	omitWarnings             bool
	hasErrors                bool
	latestReturnHadSemicolon bool
	hasImports               bool
}

type fnOpts struct {
	allowYield      bool
	isReturnAllowed bool
}

// Array and object literals may turn out to be destructuring patterns once
// the parser sees what follows them. Some errors only apply to one of the two
// interpretations, so they are recorded here and logged once the parser knows
// which one it has.
type deferredErrors struct {
	// These are errors for expressions
	invalidExprDefaultValue logging.Range

	// These are errors for destructuring patterns
	invalidBindingCommaAfterSpread logging.Range
}

func (from *deferredErrors) mergeInto(to *deferredErrors) {
	if from.invalidExprDefaultValue.Len > 0 {
		to.invalidExprDefaultValue = from.invalidExprDefaultValue
	}
	if from.invalidBindingCommaAfterSpread.Len > 0 {
		to.invalidBindingCommaAfterSpread = from.invalidBindingCommaAfterSpread
	}
}

func (p *parser) logExprErrors(errors *deferredErrors) {
	if errors.invalidExprDefaultValue.Len > 0 {
		p.addRangeError(errors.invalidExprDefaultValue, "Unexpected \"=\"")
	}
}

func (p *parser) logBindingErrors(errors *deferredErrors) {
	if errors.invalidBindingCommaAfterSpread.Len > 0 {
		p.addRangeError(errors.invalidBindingCommaAfterSpread, "Unexpected \",\" after rest pattern")
	}
}

func (p *parser) addError(loc logging.Loc, text string) {
	p.hasErrors = true
	p.log.AddError(p.source, loc, text)
}

func (p *parser) addRangeError(r logging.Range, text string) {
	p.hasErrors = true
	p.log.AddRangeError(p.source, r, text)
}

func (p *parser) checkIdentifier(r logging.Range, name string) {
	if js_lexer.StrictModeReservedWords[name] {
		p.addRangeError(r, fmt.Sprintf("Cannot use %q as an identifier", name))
	}
}

// Returns true if the current token means the literal that was just parsed
// must be a destructuring pattern.
func (p *parser) willNeedBindingPattern() bool {
	switch p.lexer.Token {
	case js_lexer.TEquals:
		// "[a] = b;"
		return true

	case js_lexer.TIn:
		// "for ([a] in b) {}"
		return !p.allowIn

	case js_lexer.TIdentifier:
		// "for ([a] of b) {}"
		return !p.allowIn && p.lexer.IsContextualKeyword("of")
	}
	return false
}

type propertyOpts struct {
	isGenerator bool
}

func (p *parser) parseProperty(kind js_ast.PropertyKind, opts propertyOpts, errors *deferredErrors) js_ast.Property {
	var key js_ast.Expr
	keyRange := p.lexer.Range()
	isComputed := false

	switch p.lexer.Token {
	case js_lexer.TNumericLiteral:
		key = js_ast.Expr{Loc: p.lexer.Loc(), Data: &js_ast.ENumber{Value: p.lexer.Number}}
		p.lexer.Next()

	case js_lexer.TStringLiteral:
		key = js_ast.Expr{Loc: p.lexer.Loc(), Data: &js_ast.EString{Value: p.lexer.StringLiteral}}
		p.lexer.Next()

	case js_lexer.TOpenBracket:
		isComputed = true
		p.lexer.Next()
		oldAllowIn := p.allowIn
		p.allowIn = true
		key = p.parseExpr(js_ast.LComma)
		p.allowIn = oldAllowIn
		p.lexer.Expect(js_lexer.TCloseBracket)

	case js_lexer.TAsterisk:
		if kind != js_ast.PropertyNormal || opts.isGenerator {
			p.lexer.Unexpected()
		}
		p.lexer.Next()
		opts.isGenerator = true
		return p.parseProperty(js_ast.PropertyNormal, opts, errors)

	default:
		name := p.lexer.Identifier
		raw := p.lexer.Raw()
		isIdentifier := p.lexer.Token == js_lexer.TIdentifier
		if !p.lexer.IsIdentifierOrKeyword() {
			p.lexer.Expect(js_lexer.TIdentifier)
		}
		p.lexer.Next()
		key = js_ast.Expr{Loc: keyRange.Loc, Data: &js_ast.EString{Value: js_lexer.StringToUTF16(name)}}

		// Support contextual keywords
		if kind == js_ast.PropertyNormal && !opts.isGenerator {
			// Does the following token look like a key?
			couldBeModifierKeyword := p.lexer.IsIdentifierOrKeyword()
			if !couldBeModifierKeyword {
				switch p.lexer.Token {
				case js_lexer.TOpenBracket, js_lexer.TNumericLiteral, js_lexer.TStringLiteral:
					couldBeModifierKeyword = true
				}
			}

			// If so, check for a modifier keyword
			if couldBeModifierKeyword {
				switch raw {
				case "get":
					return p.parseProperty(js_ast.PropertyGet, opts, nil)

				case "set":
					return p.parseProperty(js_ast.PropertySet, opts, nil)
				}
			}
		}

		// Parse a shorthand property
		if kind == js_ast.PropertyNormal && !opts.isGenerator && isIdentifier &&
			p.lexer.Token != js_lexer.TColon && p.lexer.Token != js_lexer.TOpenParen {
			p.checkIdentifier(keyRange, name)
			value := js_ast.Expr{Loc: key.Loc, Data: &js_ast.EIdentifier{Name: name}}

			// Destructuring patterns have an optional default value
			if p.lexer.Token == js_lexer.TEquals {
				if errors != nil && errors.invalidExprDefaultValue.Len == 0 {
					errors.invalidExprDefaultValue = p.lexer.Range()
				} else if errors == nil {
					p.lexer.Unexpected()
				}
				p.lexer.Next()
				target := value
				value = js_ast.Expr{Loc: key.Loc, Data: &js_ast.EAssign{
					Op:     js_ast.BinOpAssign,
					Target: js_ast.ExprOrBinding{Expr: &target},
					Value:  p.parseExpr(js_ast.LComma),
				}}
			}

			return js_ast.Property{Kind: kind, IsShorthand: true, Key: key, Value: &value}
		}
	}

	// Parse a method expression
	if p.lexer.Token == js_lexer.TOpenParen || kind != js_ast.PropertyNormal || opts.isGenerator {
		loc := p.lexer.Loc()
		fn := p.parseFn(nil, fnOpts{allowYield: opts.isGenerator, isReturnAllowed: true})

		switch kind {
		case js_ast.PropertyGet:
			if len(fn.Args) > 0 {
				p.addRangeError(keyRange, fmt.Sprintf("Getter %s must have zero arguments", p.source.TextForRange(keyRange)))
			}

		case js_ast.PropertySet:
			if len(fn.Args) != 1 || fn.HasRestArg {
				p.addRangeError(keyRange, fmt.Sprintf("Setter %s must have exactly one argument", p.source.TextForRange(keyRange)))
			}
		}

		value := js_ast.Expr{Loc: loc, Data: &js_ast.EFunction{Fn: fn}}
		return js_ast.Property{Kind: kind, IsComputed: isComputed, IsMethod: true, Key: key, Value: &value}
	}

	p.lexer.Expect(js_lexer.TColon)
	value := p.parseExprOrBindings(js_ast.LComma, errors)
	return js_ast.Property{Kind: kind, IsComputed: isComputed, Key: key, Value: &value}
}

func (p *parser) parsePropertyBinding() js_ast.PropertyBinding {
	var key js_ast.Expr
	isComputed := false

	switch p.lexer.Token {
	case js_lexer.TDotDotDot:
		p.lexer.Next()
		r := p.lexer.Range()
		name := p.lexer.Identifier
		p.lexer.Expect(js_lexer.TIdentifier)
		p.checkIdentifier(r, name)
		return js_ast.PropertyBinding{
			IsSpread: true,
			Value:    js_ast.Binding{Loc: r.Loc, Data: &js_ast.BIdentifier{Name: name}},
		}

	case js_lexer.TNumericLiteral:
		key = js_ast.Expr{Loc: p.lexer.Loc(), Data: &js_ast.ENumber{Value: p.lexer.Number}}
		p.lexer.Next()

	case js_lexer.TStringLiteral:
		key = js_ast.Expr{Loc: p.lexer.Loc(), Data: &js_ast.EString{Value: p.lexer.StringLiteral}}
		p.lexer.Next()

	case js_lexer.TOpenBracket:
		isComputed = true
		p.lexer.Next()
		key = p.parseExpr(js_ast.LComma)
		p.lexer.Expect(js_lexer.TCloseBracket)

	default:
		name := p.lexer.Identifier
		r := p.lexer.Range()
		isIdentifier := p.lexer.Token == js_lexer.TIdentifier
		if !p.lexer.IsIdentifierOrKeyword() {
			p.lexer.Expect(js_lexer.TIdentifier)
		}
		p.lexer.Next()
		key = js_ast.Expr{Loc: r.Loc, Data: &js_ast.EString{Value: js_lexer.StringToUTF16(name)}}

		if isIdentifier && p.lexer.Token != js_lexer.TColon {
			p.checkIdentifier(r, name)
			value := js_ast.Binding{Loc: r.Loc, Data: &js_ast.BIdentifier{Name: name}}

			var defaultValue *js_ast.Expr
			if p.lexer.Token == js_lexer.TEquals {
				p.lexer.Next()
				init := p.parseExpr(js_ast.LComma)
				defaultValue = &init
			}

			return js_ast.PropertyBinding{IsShorthand: true, Key: key, Value: value, DefaultValue: defaultValue}
		}
	}

	p.lexer.Expect(js_lexer.TColon)
	value := p.parseBinding()

	var defaultValue *js_ast.Expr
	if p.lexer.Token == js_lexer.TEquals {
		p.lexer.Next()
		init := p.parseExpr(js_ast.LComma)
		defaultValue = &init
	}

	return js_ast.PropertyBinding{IsComputed: isComputed, Key: key, Value: value, DefaultValue: defaultValue}
}

func (p *parser) parseArrowBody() (js_ast.FnBody, bool) {
	if p.lexer.Token == js_lexer.TOpenBrace {
		return p.parseFnBody(fnOpts{isReturnAllowed: true}), false
	}

	oldFnOpts := p.fnOpts
	p.fnOpts = fnOpts{isReturnAllowed: true}
	value := p.parseExpr(js_ast.LComma)
	p.fnOpts = oldFnOpts
	return js_ast.FnBody{Loc: value.Loc, Stmts: []js_ast.Stmt{{Loc: value.Loc, Data: &js_ast.SReturn{Value: &value}}}}, true
}

// This assumes the "(" token has already been parsed. The contents could be
// either the arguments of an arrow function or a parenthesized expression, so
// they are parsed with the grammar that covers both and converted once the
// token after ")" is known.
func (p *parser) parseParenExpr(loc logging.Loc) js_ast.Expr {
	items := []js_ast.Expr{}
	errors := deferredErrors{}
	spreadRange := logging.Range{}

	// Allow "in" inside parentheses
	oldAllowIn := p.allowIn
	p.allowIn = true

	for p.lexer.Token != js_lexer.TCloseParen {
		itemLoc := p.lexer.Loc()
		isSpread := p.lexer.Token == js_lexer.TDotDotDot

		if isSpread {
			spreadRange = p.lexer.Range()
			p.lexer.Next()
		}

		item := p.parseExprOrBindings(js_ast.LComma, &errors)

		if isSpread {
			item = js_ast.Expr{Loc: itemLoc, Data: &js_ast.ESpread{Value: item}}
		}

		items = append(items, item)

		if p.lexer.Token != js_lexer.TComma {
			break
		}

		// Spread arguments must come last
		if isSpread {
			errors.invalidBindingCommaAfterSpread = p.lexer.Range()
		}

		p.lexer.Next()
	}

	p.lexer.Expect(js_lexer.TCloseParen)
	p.allowIn = oldAllowIn

	// Are these arguments to an arrow function?
	if p.lexer.Token == js_lexer.TEqualsGreaterThan || len(items) == 0 {
		if p.lexer.HasNewlineBefore {
			p.addRangeError(p.lexer.Range(), "Unexpected newline before \"=>\"")
			panic(js_lexer.LexerPanic{})
		}
		p.lexer.Expect(js_lexer.TEqualsGreaterThan)
		p.logBindingErrors(&errors)

		args := []js_ast.Arg{}
		hasRestArg := false
		for _, item := range items {
			if spread, ok := item.Data.(*js_ast.ESpread); ok {
				item = spread.Value
				hasRestArg = true
			}
			binding, initializer, ok := p.convertExprToBindingAndInitializer(item)
			if !ok {
				p.addError(item.Loc, "Invalid binding pattern")
			}
			if hasRestArg && initializer != nil {
				p.addError(initializer.Loc, "A rest argument cannot have a default initializer")
			}
			args = append(args, js_ast.Arg{Binding: binding, Default: initializer})
		}

		body, preferExpr := p.parseArrowBody()
		return js_ast.Expr{Loc: loc, Data: &js_ast.EArrow{
			Args:       args,
			HasRestArg: hasRestArg,
			Body:       body,
			PreferExpr: preferExpr,
		}}
	}

	// If this isn't an arrow function, then types aren't allowed
	if spreadRange.Len > 0 {
		p.addRangeError(spreadRange, "Unexpected \"...\"")
		panic(js_lexer.LexerPanic{})
	}
	p.logExprErrors(&errors)

	// Are these arguments for a parenthesized expression?
	value := items[0]
	for _, item := range items[1:] {
		value = js_ast.JoinWithComma(value, item)
	}
	return value
}

func (p *parser) convertExprToBindingAndInitializer(expr js_ast.Expr) (js_ast.Binding, *js_ast.Expr, bool) {
	if assign, ok := expr.Data.(*js_ast.EAssign); ok && assign.Op == js_ast.BinOpAssign {
		initializer := assign.Value
		if assign.Target.Binding != nil {
			return *assign.Target.Binding, &initializer, true
		}
		binding, ok := p.convertExprToBinding(*assign.Target.Expr)
		return binding, &initializer, ok
	}

	binding, ok := p.convertExprToBinding(expr)
	return binding, nil, ok
}

// Only identifiers and nested patterns can be converted. Member expressions
// are valid assignment targets but they have no binding form, so "[a.b] = c"
// stays an expression.
func (p *parser) convertExprToBinding(expr js_ast.Expr) (js_ast.Binding, bool) {
	switch e := expr.Data.(type) {
	case *js_ast.EMissing:
		return js_ast.Binding{Loc: expr.Loc, Data: &js_ast.BMissing{}}, true

	case *js_ast.EIdentifier:
		return js_ast.Binding{Loc: expr.Loc, Data: &js_ast.BIdentifier{Name: e.Name}}, true

	case *js_ast.EArray:
		items := []js_ast.ArrayBinding{}
		hasSpread := false
		for i, item := range e.Items {
			if spread, ok := item.Data.(*js_ast.ESpread); ok {
				if i+1 != len(e.Items) {
					return js_ast.Binding{}, false
				}
				hasSpread = true
				item = spread.Value
			}
			binding, initializer, ok := p.convertExprToBindingAndInitializer(item)
			if !ok || (hasSpread && initializer != nil) {
				return js_ast.Binding{}, false
			}
			items = append(items, js_ast.ArrayBinding{Binding: binding, DefaultValue: initializer})
		}
		return js_ast.Binding{Loc: expr.Loc, Data: &js_ast.BArray{Items: items, HasSpread: hasSpread}}, true

	case *js_ast.EObject:
		properties := []js_ast.PropertyBinding{}
		for i, item := range e.Properties {
			if item.IsMethod || item.Kind == js_ast.PropertyGet || item.Kind == js_ast.PropertySet {
				return js_ast.Binding{}, false
			}
			if item.Kind == js_ast.PropertySpread {
				if i+1 != len(e.Properties) {
					return js_ast.Binding{}, false
				}
				name, ok := item.Value.Data.(*js_ast.EIdentifier)
				if !ok {
					return js_ast.Binding{}, false
				}
				properties = append(properties, js_ast.PropertyBinding{
					IsSpread: true,
					Value:    js_ast.Binding{Loc: item.Value.Loc, Data: &js_ast.BIdentifier{Name: name.Name}},
				})
				continue
			}
			binding, initializer, ok := p.convertExprToBindingAndInitializer(*item.Value)
			if !ok {
				return js_ast.Binding{}, false
			}
			properties = append(properties, js_ast.PropertyBinding{
				IsComputed:   item.IsComputed,
				IsShorthand:  item.IsShorthand,
				Key:          item.Key,
				Value:        binding,
				DefaultValue: initializer,
			})
		}
		return js_ast.Binding{Loc: expr.Loc, Data: &js_ast.BObject{Properties: properties}}, true
	}

	return js_ast.Binding{}, false
}

func isValidSimpleAssignTarget(expr js_ast.Expr) bool {
	switch e := expr.Data.(type) {
	case *js_ast.EIdentifier:
		return true
	case *js_ast.EDot:
		return e.OptionalChain == js_ast.OptionalChainNone
	case *js_ast.EIndex:
		return e.OptionalChain == js_ast.OptionalChainNone
	}
	return false
}

func (p *parser) assignTarget(op js_ast.OpCode, target js_ast.Expr) js_ast.ExprOrBinding {
	if op == js_ast.BinOpAssign {
		switch target.Data.(type) {
		case *js_ast.EArray, *js_ast.EObject:
			if binding, ok := p.convertExprToBinding(target); ok {
				return js_ast.ExprOrBinding{Binding: &binding}
			}
			return js_ast.ExprOrBinding{Expr: &target}
		}
	}

	if !isValidSimpleAssignTarget(target) {
		p.addError(target.Loc, "Invalid assignment target")
	}
	return js_ast.ExprOrBinding{Expr: &target}
}

func (p *parser) checkUpdateTarget(target js_ast.Expr) {
	if !isValidSimpleAssignTarget(target) {
		p.addError(target.Loc, "Invalid assignment target")
	}
}

func (p *parser) parsePrefix(level js_ast.L, errors *deferredErrors) js_ast.Expr {
	loc := p.lexer.Loc()

	switch p.lexer.Token {
	case js_lexer.TSuper:
		p.lexer.Next()

		switch p.lexer.Token {
		case js_lexer.TOpenParen, js_lexer.TDot, js_lexer.TOpenBracket:
			return js_ast.Expr{Loc: loc, Data: &js_ast.ESuper{}}
		}

		p.lexer.Unexpected()
		return js_ast.Expr{}

	case js_lexer.TOpenParen:
		p.lexer.Next()
		return p.parseParenExpr(loc)

	case js_lexer.TFalse:
		p.lexer.Next()
		return js_ast.Expr{Loc: loc, Data: &js_ast.EBoolean{Value: false}}

	case js_lexer.TTrue:
		p.lexer.Next()
		return js_ast.Expr{Loc: loc, Data: &js_ast.EBoolean{Value: true}}

	case js_lexer.TNull:
		p.lexer.Next()
		return js_ast.Expr{Loc: loc, Data: &js_ast.ENull{}}

	case js_lexer.TThis:
		p.lexer.Next()
		return js_ast.Expr{Loc: loc, Data: &js_ast.EThis{}}

	case js_lexer.TIdentifier:
		name := p.lexer.Identifier
		r := p.lexer.Range()

		// Handle yield expressions
		if p.fnOpts.allowYield && p.lexer.Raw() == "yield" {
			if level > js_ast.LAssign {
				p.addRangeError(r, "Cannot use a \"yield\" expression here without parentheses")
			}
			p.lexer.Next()
			return p.parseYieldExpr(loc)
		}

		p.lexer.Next()
		p.checkIdentifier(r, name)

		// Handle the start of an arrow function
		if p.lexer.Token == js_lexer.TEqualsGreaterThan {
			if p.lexer.HasNewlineBefore {
				p.addRangeError(p.lexer.Range(), "Unexpected newline before \"=>\"")
				panic(js_lexer.LexerPanic{})
			}
			p.lexer.Next()
			body, preferExpr := p.parseArrowBody()
			return js_ast.Expr{Loc: loc, Data: &js_ast.EArrow{
				Args:       []js_ast.Arg{{Binding: js_ast.Binding{Loc: loc, Data: &js_ast.BIdentifier{Name: name}}}},
				Body:       body,
				PreferExpr: preferExpr,
			}}
		}

		return js_ast.Expr{Loc: loc, Data: &js_ast.EIdentifier{Name: name}}

	case js_lexer.TEscapedKeyword:
		p.addRangeError(p.lexer.Range(), "Keywords cannot contain escape characters")
		panic(js_lexer.LexerPanic{})

	case js_lexer.TStringLiteral:
		value := p.lexer.StringLiteral
		p.lexer.Next()
		return js_ast.Expr{Loc: loc, Data: &js_ast.EString{Value: value}}

	case js_lexer.TNoSubstitutionTemplateLiteral, js_lexer.TTemplateHead:
		return p.parseTemplate(loc, nil)

	case js_lexer.TNumericLiteral:
		value := p.lexer.Number
		p.lexer.Next()
		return js_ast.Expr{Loc: loc, Data: &js_ast.ENumber{Value: value}}

	case js_lexer.TSlash, js_lexer.TSlashEquals:
		p.lexer.ScanRegExp()
		pattern, flags := p.lexer.RegExpParts()
		p.lexer.Next()
		return js_ast.Expr{Loc: loc, Data: &js_ast.ERegExp{Pattern: pattern, Flags: flags}}

	case js_lexer.TVoid:
		return p.parseUnary(loc, js_ast.UnOpVoid)

	case js_lexer.TTypeof:
		return p.parseUnary(loc, js_ast.UnOpTypeof)

	case js_lexer.TDelete:
		return p.parseUnary(loc, js_ast.UnOpDelete)

	case js_lexer.TPlus:
		return p.parseUnary(loc, js_ast.UnOpPos)

	case js_lexer.TMinus:
		return p.parseUnary(loc, js_ast.UnOpNeg)

	case js_lexer.TTilde:
		return p.parseUnary(loc, js_ast.UnOpCpl)

	case js_lexer.TExclamation:
		return p.parseUnary(loc, js_ast.UnOpNot)

	case js_lexer.TMinusMinus:
		p.lexer.Next()
		value := p.parseExpr(js_ast.LPrefix)
		p.checkUpdateTarget(value)
		return js_ast.Expr{Loc: loc, Data: &js_ast.EUnary{Op: js_ast.UnOpPreDec, Value: value}}

	case js_lexer.TPlusPlus:
		p.lexer.Next()
		value := p.parseExpr(js_ast.LPrefix)
		p.checkUpdateTarget(value)
		return js_ast.Expr{Loc: loc, Data: &js_ast.EUnary{Op: js_ast.UnOpPreInc, Value: value}}

	case js_lexer.TFunction:
		return p.parseFnExpr(loc)

	case js_lexer.TNew:
		p.lexer.Next()
		target := p.parseExpr(js_ast.LCall)
		args := []js_ast.Expr{}

		if p.lexer.Token == js_lexer.TOpenParen {
			args = p.parseCallArgs()
		}

		return js_ast.Expr{Loc: loc, Data: &js_ast.ENew{Target: target, Args: args}}

	case js_lexer.TOpenBracket:
		p.lexer.Next()
		items := []js_ast.Expr{}
		selfErrors := deferredErrors{}

		// Allow "in" inside arrays
		oldAllowIn := p.allowIn
		p.allowIn = true

		for p.lexer.Token != js_lexer.TCloseBracket {
			switch p.lexer.Token {
			case js_lexer.TComma:
				items = append(items, js_ast.Expr{Loc: p.lexer.Loc(), Data: &js_ast.EMissing{}})

			case js_lexer.TDotDotDot:
				dotsLoc := p.lexer.Loc()
				p.lexer.Next()
				item := p.parseExprOrBindings(js_ast.LComma, &selfErrors)
				items = append(items, js_ast.Expr{Loc: dotsLoc, Data: &js_ast.ESpread{Value: item}})

				// Commas are not allowed here when destructuring
				if p.lexer.Token == js_lexer.TComma {
					selfErrors.invalidBindingCommaAfterSpread = p.lexer.Range()
				}

			default:
				item := p.parseExprOrBindings(js_ast.LComma, &selfErrors)
				items = append(items, item)
			}

			if p.lexer.Token != js_lexer.TComma {
				break
			}
			p.lexer.Next()
		}

		p.lexer.Expect(js_lexer.TCloseBracket)
		p.allowIn = oldAllowIn

		if p.willNeedBindingPattern() {
			// Is this a binding pattern?
			p.logBindingErrors(&selfErrors)
		} else if errors == nil {
			// Is this an expression?
			p.logExprErrors(&selfErrors)
		} else {
			// In this case, we can't distinguish between the two yet
			selfErrors.mergeInto(errors)
		}

		return js_ast.Expr{Loc: loc, Data: &js_ast.EArray{Items: items}}

	case js_lexer.TOpenBrace:
		p.lexer.Next()
		properties := []js_ast.Property{}
		selfErrors := deferredErrors{}

		// Allow "in" inside object literals
		oldAllowIn := p.allowIn
		p.allowIn = true

		for p.lexer.Token != js_lexer.TCloseBrace {
			if p.lexer.Token == js_lexer.TDotDotDot {
				p.lexer.Next()
				value := p.parseExprOrBindings(js_ast.LComma, &selfErrors)
				properties = append(properties, js_ast.Property{Kind: js_ast.PropertySpread, Value: &value})

				// Commas are not allowed here when destructuring
				if p.lexer.Token == js_lexer.TComma {
					selfErrors.invalidBindingCommaAfterSpread = p.lexer.Range()
				}
			} else {
				properties = append(properties, p.parseProperty(js_ast.PropertyNormal, propertyOpts{}, &selfErrors))
			}

			if p.lexer.Token != js_lexer.TComma {
				break
			}
			p.lexer.Next()
		}

		p.lexer.Expect(js_lexer.TCloseBrace)
		p.allowIn = oldAllowIn

		if p.willNeedBindingPattern() {
			// Is this a binding pattern?
			p.logBindingErrors(&selfErrors)
		} else if errors == nil {
			// Is this an expression?
			p.logExprErrors(&selfErrors)
		} else {
			// In this case, we can't distinguish between the two yet
			selfErrors.mergeInto(errors)
		}

		return js_ast.Expr{Loc: loc, Data: &js_ast.EObject{Properties: properties}}

	case js_lexer.TClass:
		p.addRangeError(p.lexer.Range(), "Classes are not supported")
		panic(js_lexer.LexerPanic{})
	}

	p.lexer.Unexpected()
	return js_ast.Expr{}
}

func (p *parser) parseUnary(loc logging.Loc, op js_ast.OpCode) js_ast.Expr {
	p.lexer.Next()
	value := p.parseExpr(js_ast.LPrefix)

	// "-a ** b" is ambiguous and must be parenthesized
	if p.lexer.Token == js_lexer.TAsteriskAsterisk {
		p.lexer.Unexpected()
	}

	return js_ast.Expr{Loc: loc, Data: &js_ast.EUnary{Op: op, Value: value}}
}

// This assumes the "yield" token has already been parsed
func (p *parser) parseYieldExpr(loc logging.Loc) js_ast.Expr {
	var value *js_ast.Expr
	isStar := false

	if !p.lexer.HasNewlineBefore {
		if p.lexer.Token == js_lexer.TAsterisk {
			isStar = true
			p.lexer.Next()
		}

		switch p.lexer.Token {
		case js_lexer.TCloseBrace, js_lexer.TCloseBracket, js_lexer.TCloseParen,
			js_lexer.TColon, js_lexer.TComma, js_lexer.TSemicolon, js_lexer.TEndOfFile:
			if isStar {
				p.lexer.Unexpected()
			}

		default:
			expr := p.parseExpr(js_ast.LYield)
			value = &expr
		}
	}

	return js_ast.Expr{Loc: loc, Data: &js_ast.EYield{Value: value, IsStar: isStar}}
}

// This assumes the "function" token has not been parsed yet
func (p *parser) parseFnExpr(loc logging.Loc) js_ast.Expr {
	p.lexer.Next()
	isGenerator := p.lexer.Token == js_lexer.TAsterisk
	if isGenerator {
		p.lexer.Next()
	}

	var name *js_ast.LocName
	if p.lexer.Token == js_lexer.TIdentifier {
		r := p.lexer.Range()
		p.checkIdentifier(r, p.lexer.Identifier)
		name = &js_ast.LocName{Loc: r.Loc, Name: p.lexer.Identifier}
		p.lexer.Next()
	}

	fn := p.parseFn(name, fnOpts{allowYield: isGenerator, isReturnAllowed: true})
	return js_ast.Expr{Loc: loc, Data: &js_ast.EFunction{Fn: fn}}
}

func (p *parser) parseTemplate(loc logging.Loc, tag *js_ast.Expr) js_ast.Expr {
	headLoc := p.lexer.Loc()
	headCooked, headRaw := p.lexer.CookedAndRawTemplateContents(tag != nil)
	var parts []js_ast.TemplatePart

	if p.lexer.Token == js_lexer.TNoSubstitutionTemplateLiteral {
		p.lexer.Next()
	} else {
		parts = p.parseTemplateParts(tag != nil)
	}

	return js_ast.Expr{Loc: loc, Data: &js_ast.ETemplate{
		Tag:        tag,
		HeadLoc:    headLoc,
		HeadCooked: headCooked,
		HeadRaw:    headRaw,
		Parts:      parts,
	}}
}

func (p *parser) parseTemplateParts(isTagged bool) []js_ast.TemplatePart {
	parts := []js_ast.TemplatePart{}

	// Allow "in" inside template literals
	oldAllowIn := p.allowIn
	p.allowIn = true

	for {
		p.lexer.Next()
		value := p.parseExpr(js_ast.LLowest)
		p.lexer.RescanCloseBraceAsTemplateToken()
		tailLoc := p.lexer.Loc()
		tailCooked, tailRaw := p.lexer.CookedAndRawTemplateContents(isTagged)
		parts = append(parts, js_ast.TemplatePart{
			Value:      value,
			TailLoc:    tailLoc,
			TailCooked: tailCooked,
			TailRaw:    tailRaw,
		})
		if p.lexer.Token == js_lexer.TTemplateTail {
			p.lexer.Next()
			break
		}
	}

	p.allowIn = oldAllowIn
	return parts
}

func (p *parser) parseExpr(level js_ast.L) js_ast.Expr {
	return p.parseSuffix(p.parsePrefix(level, nil), level)
}

func (p *parser) parseExprOrBindings(level js_ast.L, errors *deferredErrors) js_ast.Expr {
	return p.parseSuffix(p.parsePrefix(level, errors), level)
}

func (p *parser) parseSuffix(left js_ast.Expr, level js_ast.L) js_ast.Expr {
	optionalChain := js_ast.OptionalChainNone

	for {
		oldOptionalChain := optionalChain
		optionalChain = js_ast.OptionalChainNone

		switch p.lexer.Token {
		case js_lexer.TDot:
			p.lexer.Next()
			name := p.lexer.Identifier
			nameLoc := p.lexer.Loc()
			if !p.lexer.IsIdentifierOrKeyword() {
				p.lexer.Expect(js_lexer.TIdentifier)
			}
			p.lexer.Next()
			left = js_ast.Expr{Loc: left.Loc, Data: &js_ast.EDot{
				Target:        left,
				Name:          name,
				NameLoc:       nameLoc,
				OptionalChain: oldOptionalChain,
			}}
			optionalChain = oldOptionalChain

		case js_lexer.TQuestionDot:
			p.lexer.Next()

			switch p.lexer.Token {
			case js_lexer.TOpenBracket:
				p.lexer.Next()

				// Allow "in" inside the brackets
				oldAllowIn := p.allowIn
				p.allowIn = true
				index := p.parseExpr(js_ast.LLowest)
				p.allowIn = oldAllowIn

				p.lexer.Expect(js_lexer.TCloseBracket)
				left = js_ast.Expr{Loc: left.Loc, Data: &js_ast.EIndex{
					Target:        left,
					Index:         index,
					OptionalChain: js_ast.OptionalChainStart,
				}}

			case js_lexer.TOpenParen:
				if level >= js_ast.LCall {
					return left
				}
				left = js_ast.Expr{Loc: left.Loc, Data: &js_ast.ECall{
					Target:        left,
					Args:          p.parseCallArgs(),
					OptionalChain: js_ast.OptionalChainStart,
				}}

			default:
				name := p.lexer.Identifier
				nameLoc := p.lexer.Loc()
				if !p.lexer.IsIdentifierOrKeyword() {
					p.lexer.Expect(js_lexer.TIdentifier)
				}
				p.lexer.Next()
				left = js_ast.Expr{Loc: left.Loc, Data: &js_ast.EDot{
					Target:        left,
					Name:          name,
					NameLoc:       nameLoc,
					OptionalChain: js_ast.OptionalChainStart,
				}}
			}

			optionalChain = js_ast.OptionalChainContinue

		case js_lexer.TNoSubstitutionTemplateLiteral, js_lexer.TTemplateHead:
			if oldOptionalChain != js_ast.OptionalChainNone {
				p.addRangeError(p.lexer.Range(), "Template literals cannot have an optional chain as a tag")
			}
			tag := left
			left = p.parseTemplate(left.Loc, &tag)

		case js_lexer.TOpenBracket:
			p.lexer.Next()

			// Allow "in" inside the brackets
			oldAllowIn := p.allowIn
			p.allowIn = true
			index := p.parseExpr(js_ast.LLowest)
			p.allowIn = oldAllowIn

			p.lexer.Expect(js_lexer.TCloseBracket)
			left = js_ast.Expr{Loc: left.Loc, Data: &js_ast.EIndex{
				Target:        left,
				Index:         index,
				OptionalChain: oldOptionalChain,
			}}
			optionalChain = oldOptionalChain

		case js_lexer.TOpenParen:
			if level >= js_ast.LCall {
				return left
			}
			left = js_ast.Expr{Loc: left.Loc, Data: &js_ast.ECall{
				Target:        left,
				Args:          p.parseCallArgs(),
				OptionalChain: oldOptionalChain,
			}}
			optionalChain = oldOptionalChain

		case js_lexer.TQuestion:
			if level >= js_ast.LConditional {
				return left
			}
			p.lexer.Next()

			// Allow "in" in between "?" and ":"
			oldAllowIn := p.allowIn
			p.allowIn = true
			yes := p.parseExpr(js_ast.LComma)
			p.allowIn = oldAllowIn

			p.lexer.Expect(js_lexer.TColon)
			no := p.parseExpr(js_ast.LComma)
			left = js_ast.Expr{Loc: left.Loc, Data: &js_ast.EIf{Test: left, Yes: yes, No: no}}

		case js_lexer.TMinusMinus:
			if p.lexer.HasNewlineBefore || level >= js_ast.LPostfix {
				return left
			}
			p.lexer.Next()
			p.checkUpdateTarget(left)
			left = js_ast.Expr{Loc: left.Loc, Data: &js_ast.EUnary{Op: js_ast.UnOpPostDec, Value: left}}

		case js_lexer.TPlusPlus:
			if p.lexer.HasNewlineBefore || level >= js_ast.LPostfix {
				return left
			}
			p.lexer.Next()
			p.checkUpdateTarget(left)
			left = js_ast.Expr{Loc: left.Loc, Data: &js_ast.EUnary{Op: js_ast.UnOpPostInc, Value: left}}

		case js_lexer.TComma:
			if level >= js_ast.LComma {
				return left
			}
			p.lexer.Next()
			left = js_ast.JoinWithComma(left, p.parseExpr(js_ast.LComma))

		case js_lexer.TPlus:
			if level >= js_ast.LAdd {
				return left
			}
			left = p.parseBinary(left, js_ast.BinOpAdd, js_ast.LAdd)

		case js_lexer.TMinus:
			if level >= js_ast.LAdd {
				return left
			}
			left = p.parseBinary(left, js_ast.BinOpSub, js_ast.LAdd)

		case js_lexer.TAsterisk:
			if level >= js_ast.LMultiply {
				return left
			}
			left = p.parseBinary(left, js_ast.BinOpMul, js_ast.LMultiply)

		case js_lexer.TAsteriskAsterisk:
			if level >= js_ast.LExponentiation {
				return left
			}
			left = p.parseBinary(left, js_ast.BinOpPow, js_ast.LExponentiation-1)

		case js_lexer.TSlash:
			if level >= js_ast.LMultiply {
				return left
			}
			left = p.parseBinary(left, js_ast.BinOpDiv, js_ast.LMultiply)

		case js_lexer.TPercent:
			if level >= js_ast.LMultiply {
				return left
			}
			left = p.parseBinary(left, js_ast.BinOpRem, js_ast.LMultiply)

		case js_lexer.TLessThanLessThan:
			if level >= js_ast.LShift {
				return left
			}
			left = p.parseBinary(left, js_ast.BinOpShl, js_ast.LShift)

		case js_lexer.TGreaterThanGreaterThan:
			if level >= js_ast.LShift {
				return left
			}
			left = p.parseBinary(left, js_ast.BinOpShr, js_ast.LShift)

		case js_lexer.TGreaterThanGreaterThanGreaterThan:
			if level >= js_ast.LShift {
				return left
			}
			left = p.parseBinary(left, js_ast.BinOpUShr, js_ast.LShift)

		case js_lexer.TLessThan:
			if level >= js_ast.LCompare {
				return left
			}
			left = p.parseBinary(left, js_ast.BinOpLt, js_ast.LCompare)

		case js_lexer.TLessThanEquals:
			if level >= js_ast.LCompare {
				return left
			}
			left = p.parseBinary(left, js_ast.BinOpLe, js_ast.LCompare)

		case js_lexer.TGreaterThan:
			if level >= js_ast.LCompare {
				return left
			}
			left = p.parseBinary(left, js_ast.BinOpGt, js_ast.LCompare)

		case js_lexer.TGreaterThanEquals:
			if level >= js_ast.LCompare {
				return left
			}
			left = p.parseBinary(left, js_ast.BinOpGe, js_ast.LCompare)

		case js_lexer.TIn:
			if level >= js_ast.LCompare || !p.allowIn {
				return left
			}
			left = p.parseBinary(left, js_ast.BinOpIn, js_ast.LCompare)

		case js_lexer.TInstanceof:
			if level >= js_ast.LCompare {
				return left
			}
			left = p.parseBinary(left, js_ast.BinOpInstanceof, js_ast.LCompare)

		case js_lexer.TEqualsEquals:
			if level >= js_ast.LEquals {
				return left
			}
			left = p.parseBinary(left, js_ast.BinOpLooseEq, js_ast.LEquals)

		case js_lexer.TExclamationEquals:
			if level >= js_ast.LEquals {
				return left
			}
			left = p.parseBinary(left, js_ast.BinOpLooseNe, js_ast.LEquals)

		case js_lexer.TEqualsEqualsEquals:
			if level >= js_ast.LEquals {
				return left
			}
			left = p.parseBinary(left, js_ast.BinOpStrictEq, js_ast.LEquals)

		case js_lexer.TExclamationEqualsEquals:
			if level >= js_ast.LEquals {
				return left
			}
			left = p.parseBinary(left, js_ast.BinOpStrictNe, js_ast.LEquals)

		case js_lexer.TQuestionQuestion:
			if level >= js_ast.LNullishCoalescing {
				return left
			}
			left = p.parseBinary(left, js_ast.BinOpNullishCoalescing, js_ast.LNullishCoalescing)

		case js_lexer.TBarBar:
			if level >= js_ast.LLogicalOr {
				return left
			}

			// Prevent "||" inside "??" from the right
			if level == js_ast.LNullishCoalescing {
				p.lexer.Unexpected()
			}

			left = p.parseBinary(left, js_ast.BinOpLogicalOr, js_ast.LLogicalOr)

			// Prevent "||" inside "??" from the left
			if level < js_ast.LNullishCoalescing {
				left = p.parseSuffix(left, js_ast.LNullishCoalescing+1)
				if p.lexer.Token == js_lexer.TQuestionQuestion {
					p.lexer.Unexpected()
				}
			}

		case js_lexer.TAmpersandAmpersand:
			if level >= js_ast.LLogicalAnd {
				return left
			}

			// Prevent "&&" inside "??" from the right
			if level == js_ast.LNullishCoalescing {
				p.lexer.Unexpected()
			}

			left = p.parseBinary(left, js_ast.BinOpLogicalAnd, js_ast.LLogicalAnd)

			// Prevent "&&" inside "??" from the left
			if level < js_ast.LNullishCoalescing {
				left = p.parseSuffix(left, js_ast.LNullishCoalescing+1)
				if p.lexer.Token == js_lexer.TQuestionQuestion {
					p.lexer.Unexpected()
				}
			}

		case js_lexer.TBar:
			if level >= js_ast.LBitwiseOr {
				return left
			}
			left = p.parseBinary(left, js_ast.BinOpBitwiseOr, js_ast.LBitwiseOr)

		case js_lexer.TAmpersand:
			if level >= js_ast.LBitwiseAnd {
				return left
			}
			left = p.parseBinary(left, js_ast.BinOpBitwiseAnd, js_ast.LBitwiseAnd)

		case js_lexer.TCaret:
			if level >= js_ast.LBitwiseXor {
				return left
			}
			left = p.parseBinary(left, js_ast.BinOpBitwiseXor, js_ast.LBitwiseXor)

		default:
			op, ok := assignOps[p.lexer.Token]
			if !ok {
				return left
			}
			if level >= js_ast.LAssign {
				return left
			}
			p.lexer.Next()
			target := p.assignTarget(op, left)
			left = js_ast.Expr{Loc: left.Loc, Data: &js_ast.EAssign{
				Op:     op,
				Target: target,
				Value:  p.parseExpr(js_ast.LAssign - 1),
			}}
		}
	}
}

var assignOps = map[js_lexer.T]js_ast.OpCode{
	js_lexer.TEquals:                                 js_ast.BinOpAssign,
	js_lexer.TPlusEquals:                             js_ast.BinOpAddAssign,
	js_lexer.TMinusEquals:                            js_ast.BinOpSubAssign,
	js_lexer.TAsteriskEquals:                         js_ast.BinOpMulAssign,
	js_lexer.TSlashEquals:                            js_ast.BinOpDivAssign,
	js_lexer.TPercentEquals:                          js_ast.BinOpRemAssign,
	js_lexer.TAsteriskAsteriskEquals:                 js_ast.BinOpPowAssign,
	js_lexer.TLessThanLessThanEquals:                 js_ast.BinOpShlAssign,
	js_lexer.TGreaterThanGreaterThanEquals:           js_ast.BinOpShrAssign,
	js_lexer.TGreaterThanGreaterThanGreaterThanEquals: js_ast.BinOpUShrAssign,
	js_lexer.TBarEquals:                              js_ast.BinOpBitwiseOrAssign,
	js_lexer.TAmpersandEquals:                        js_ast.BinOpBitwiseAndAssign,
	js_lexer.TCaretEquals:                            js_ast.BinOpBitwiseXorAssign,
	js_lexer.TQuestionQuestionEquals:                 js_ast.BinOpNullishCoalescingAssign,
	js_lexer.TBarBarEquals:                           js_ast.BinOpLogicalOrAssign,
	js_lexer.TAmpersandAmpersandEquals:               js_ast.BinOpLogicalAndAssign,
}

// This assumes the operator token has not been parsed yet. The right operand
// is parsed at "level", so passing the operator's own level makes it
// left-associative and passing one less makes it right-associative.
func (p *parser) parseBinary(left js_ast.Expr, op js_ast.OpCode, level js_ast.L) js_ast.Expr {
	p.lexer.Next()
	right := p.parseExpr(level)
	return js_ast.Expr{Loc: left.Loc, Data: &js_ast.EBinary{Op: op, Left: left, Right: right}}
}

func (p *parser) parseCallArgs() []js_ast.Expr {
	// Allow "in" inside call arguments
	oldAllowIn := p.allowIn
	p.allowIn = true

	args := []js_ast.Expr{}
	p.lexer.Expect(js_lexer.TOpenParen)

	for p.lexer.Token != js_lexer.TCloseParen {
		loc := p.lexer.Loc()
		isSpread := p.lexer.Token == js_lexer.TDotDotDot
		if isSpread {
			p.lexer.Next()
		}
		arg := p.parseExpr(js_ast.LComma)
		if isSpread {
			arg = js_ast.Expr{Loc: loc, Data: &js_ast.ESpread{Value: arg}}
		}
		args = append(args, arg)
		if p.lexer.Token != js_lexer.TComma {
			break
		}
		p.lexer.Next()
	}

	p.lexer.Expect(js_lexer.TCloseParen)
	p.allowIn = oldAllowIn
	return args
}

func (p *parser) parseDecls() []js_ast.Decl {
	decls := []js_ast.Decl{}

	for {
		var value *js_ast.Expr
		local := p.parseBinding()

		if p.lexer.Token == js_lexer.TEquals {
			p.lexer.Next()
			expr := p.parseExpr(js_ast.LComma)
			value = &expr
		}

		decls = append(decls, js_ast.Decl{Binding: local, Value: value})

		if p.lexer.Token != js_lexer.TComma {
			break
		}
		p.lexer.Next()
	}

	return decls
}

func (p *parser) requireInitializers(decls []js_ast.Decl) {
	for _, d := range decls {
		if d.Value == nil {
			p.addError(d.Binding.Loc, "This constant must be initialized")
		}
	}
}

func (p *parser) forbidInitializers(decls []js_ast.Decl, loopType string, isVar bool) {
	if len(decls) > 1 {
		p.addError(decls[0].Binding.Loc, fmt.Sprintf("for-%s loops must have a single declaration", loopType))
	} else if len(decls) == 1 && decls[0].Value != nil {
		if isVar && loopType == "in" {
			if _, ok := decls[0].Binding.Data.(*js_ast.BIdentifier); ok {
				// This is a weird special case. Initializers are allowed in "var"
				// statements with identifier bindings.
				return
			}
		}
		p.addError(decls[0].Value.Loc, fmt.Sprintf("for-%s loop variables cannot have an initializer", loopType))
	}
}

func (p *parser) parseImportClause() []js_ast.ClauseItem {
	items := []js_ast.ClauseItem{}
	p.lexer.Expect(js_lexer.TOpenBrace)

	for p.lexer.Token != js_lexer.TCloseBrace {
		alias := p.lexer.Identifier
		aliasLoc := p.lexer.Loc()
		aliasRange := p.lexer.Range()
		name := js_ast.LocName{Loc: aliasLoc, Name: alias}

		// The alias may be a keyword
		isIdentifier := p.lexer.Token == js_lexer.TIdentifier
		if !p.lexer.IsIdentifierOrKeyword() {
			p.lexer.Expect(js_lexer.TIdentifier)
		}
		p.lexer.Next()

		if p.lexer.IsContextualKeyword("as") {
			p.lexer.Next()
			r := p.lexer.Range()
			name = js_ast.LocName{Loc: r.Loc, Name: p.lexer.Identifier}
			p.lexer.Expect(js_lexer.TIdentifier)
			p.checkIdentifier(r, name.Name)
		} else if !isIdentifier {
			// An import where the name is a keyword must have an alias
			p.lexer.ExpectedString("\"as\"")
		} else {
			p.checkIdentifier(aliasRange, alias)
		}

		items = append(items, js_ast.ClauseItem{Alias: alias, AliasLoc: aliasLoc, Name: name})

		if p.lexer.Token != js_lexer.TComma {
			break
		}
		p.lexer.Next()
	}

	p.lexer.Expect(js_lexer.TCloseBrace)
	return items
}

func (p *parser) parseBinding() js_ast.Binding {
	loc := p.lexer.Loc()

	switch p.lexer.Token {
	case js_lexer.TIdentifier:
		name := p.lexer.Identifier
		p.checkIdentifier(p.lexer.Range(), name)
		p.lexer.Next()
		return js_ast.Binding{Loc: loc, Data: &js_ast.BIdentifier{Name: name}}

	case js_lexer.TOpenBracket:
		p.lexer.Next()
		items := []js_ast.ArrayBinding{}
		hasSpread := false

		// "in" expressions are allowed
		oldAllowIn := p.allowIn
		p.allowIn = true

		for p.lexer.Token != js_lexer.TCloseBracket {
			if p.lexer.Token == js_lexer.TComma {
				binding := js_ast.Binding{Loc: p.lexer.Loc(), Data: &js_ast.BMissing{}}
				items = append(items, js_ast.ArrayBinding{Binding: binding})
			} else {
				if p.lexer.Token == js_lexer.TDotDotDot {
					p.lexer.Next()
					hasSpread = true
				}

				binding := p.parseBinding()

				var defaultValue *js_ast.Expr
				if !hasSpread && p.lexer.Token == js_lexer.TEquals {
					p.lexer.Next()
					value := p.parseExpr(js_ast.LComma)
					defaultValue = &value
				}

				items = append(items, js_ast.ArrayBinding{Binding: binding, DefaultValue: defaultValue})

				// Commas after spread elements are not allowed
				if hasSpread && p.lexer.Token == js_lexer.TComma {
					p.addRangeError(p.lexer.Range(), "Unexpected \",\" after rest pattern")
					panic(js_lexer.LexerPanic{})
				}
			}

			if p.lexer.Token != js_lexer.TComma {
				break
			}
			p.lexer.Next()
		}

		p.allowIn = oldAllowIn
		p.lexer.Expect(js_lexer.TCloseBracket)
		return js_ast.Binding{Loc: loc, Data: &js_ast.BArray{Items: items, HasSpread: hasSpread}}

	case js_lexer.TOpenBrace:
		p.lexer.Next()
		properties := []js_ast.PropertyBinding{}

		// "in" expressions are allowed
		oldAllowIn := p.allowIn
		p.allowIn = true

		for p.lexer.Token != js_lexer.TCloseBrace {
			property := p.parsePropertyBinding()
			properties = append(properties, property)

			// Commas after spread elements are not allowed
			if property.IsSpread && p.lexer.Token == js_lexer.TComma {
				p.addRangeError(p.lexer.Range(), "Unexpected \",\" after rest pattern")
				panic(js_lexer.LexerPanic{})
			}

			if p.lexer.Token != js_lexer.TComma {
				break
			}
			p.lexer.Next()
		}

		p.allowIn = oldAllowIn
		p.lexer.Expect(js_lexer.TCloseBrace)
		return js_ast.Binding{Loc: loc, Data: &js_ast.BObject{Properties: properties}}
	}

	p.lexer.Expect(js_lexer.TIdentifier)
	return js_ast.Binding{}
}

func (p *parser) parseFn(name *js_ast.LocName, opts fnOpts) js_ast.Fn {
	args := []js_ast.Arg{}
	hasRestArg := false
	p.lexer.Expect(js_lexer.TOpenParen)

	// "yield" in default values belongs to the enclosing function
	for p.lexer.Token != js_lexer.TCloseParen {
		if !hasRestArg && p.lexer.Token == js_lexer.TDotDotDot {
			p.lexer.Next()
			hasRestArg = true
		}

		arg := p.parseBinding()

		var defaultValue *js_ast.Expr
		if !hasRestArg && p.lexer.Token == js_lexer.TEquals {
			p.lexer.Next()
			value := p.parseExpr(js_ast.LComma)
			defaultValue = &value
		}

		args = append(args, js_ast.Arg{Binding: arg, Default: defaultValue})
		if p.lexer.Token != js_lexer.TComma {
			break
		}
		if hasRestArg {
			p.lexer.Expect(js_lexer.TCloseParen)
		}
		p.lexer.Next()
	}

	p.lexer.Expect(js_lexer.TCloseParen)
	body := p.parseFnBody(opts)

	return js_ast.Fn{
		Name:        name,
		Args:        args,
		HasRestArg:  hasRestArg,
		IsGenerator: opts.allowYield,
		Body:        body,
	}
}

func (p *parser) parseFnBody(opts fnOpts) js_ast.FnBody {
	oldFnOpts := p.fnOpts
	oldAllowIn := p.allowIn
	p.fnOpts = opts
	p.allowIn = true

	loc := p.lexer.Loc()
	p.lexer.Expect(js_lexer.TOpenBrace)
	stmts := p.parseStmtsUpTo(js_lexer.TCloseBrace, parseStmtOpts{})
	p.lexer.Next()

	p.fnOpts = oldFnOpts
	p.allowIn = oldAllowIn
	return js_ast.FnBody{Loc: loc, Stmts: stmts}
}

func (p *parser) parseLabelName() *js_ast.LocName {
	if p.lexer.Token != js_lexer.TIdentifier || p.lexer.HasNewlineBefore {
		return nil
	}

	name := js_ast.LocName{Loc: p.lexer.Loc(), Name: p.lexer.Identifier}
	p.lexer.Next()
	return &name
}

func (p *parser) parsePath() (logging.Loc, string) {
	loc := p.lexer.Loc()
	path := js_lexer.UTF16ToString(p.lexer.StringLiteral)
	p.lexer.Expect(js_lexer.TStringLiteral)
	return loc, path
}

// This assumes the "function" token has already been parsed
func (p *parser) parseFnStmt(loc logging.Loc) js_ast.Stmt {
	isGenerator := p.lexer.Token == js_lexer.TAsterisk
	if isGenerator {
		p.lexer.Next()
	}

	r := p.lexer.Range()
	name := &js_ast.LocName{Loc: r.Loc, Name: p.lexer.Identifier}
	p.lexer.Expect(js_lexer.TIdentifier)
	p.checkIdentifier(r, name.Name)

	fn := p.parseFn(name, fnOpts{allowYield: isGenerator, isReturnAllowed: true})
	return js_ast.Stmt{Loc: loc, Data: &js_ast.SFunction{Fn: fn}}
}

// "let" is not a reserved word, so "let" followed by a binding starts a
// declaration and anything else is an expression that uses "let" as a name.
// This peeks at the next token using a copy of the lexer and then restores it.
func (p *parser) isLetDeclaration() bool {
	if !p.lexer.IsContextualKeyword("let") {
		return false
	}

	snapshot := p.lexer
	p.lexer.Next()
	isDecl := p.lexer.Token == js_lexer.TOpenBracket || p.lexer.Token == js_lexer.TOpenBrace ||
		(p.lexer.Token == js_lexer.TIdentifier && !p.lexer.IsContextualKeyword("in") && !p.lexer.IsContextualKeyword("of"))
	p.lexer = snapshot
	return isDecl
}

type parseStmtOpts struct {
	isTopLevel bool
}

func (p *parser) parseStmt(opts parseStmtOpts) js_ast.Stmt {
	loc := p.lexer.Loc()

	switch p.lexer.Token {
	case js_lexer.TSemicolon:
		p.lexer.Next()
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SEmpty{}}

	case js_lexer.TImport:
		if !opts.isTopLevel {
			p.addRangeError(p.lexer.Range(), "Import declarations may only appear at the top level")
			panic(js_lexer.LexerPanic{})
		}
		return p.parseImportStmt(loc)

	case js_lexer.TExport:
		p.addRangeError(p.lexer.Range(), "Export declarations are not supported")
		panic(js_lexer.LexerPanic{})

	case js_lexer.TFunction:
		p.lexer.Next()
		return p.parseFnStmt(loc)

	case js_lexer.TClass:
		p.addRangeError(p.lexer.Range(), "Classes are not supported")
		panic(js_lexer.LexerPanic{})

	case js_lexer.TVar:
		p.lexer.Next()
		decls := p.parseDecls()
		p.lexer.ExpectOrInsertSemicolon()
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SLocal{Kind: js_ast.LocalVar, Decls: decls}}

	case js_lexer.TConst:
		p.lexer.Next()
		decls := p.parseDecls()
		p.lexer.ExpectOrInsertSemicolon()
		p.requireInitializers(decls)
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SLocal{Kind: js_ast.LocalConst, Decls: decls}}

	case js_lexer.TIf:
		p.lexer.Next()
		p.lexer.Expect(js_lexer.TOpenParen)
		test := p.parseExpr(js_ast.LLowest)
		p.lexer.Expect(js_lexer.TCloseParen)
		yes := p.parseStmt(parseStmtOpts{})
		var no *js_ast.Stmt
		if p.lexer.Token == js_lexer.TElse {
			p.lexer.Next()
			stmt := p.parseStmt(parseStmtOpts{})
			no = &stmt
		}
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SIf{Test: test, Yes: yes, No: no}}

	case js_lexer.TDo:
		p.lexer.Next()
		body := p.parseStmt(parseStmtOpts{})
		p.lexer.Expect(js_lexer.TWhile)
		p.lexer.Expect(js_lexer.TOpenParen)
		test := p.parseExpr(js_ast.LLowest)
		p.lexer.Expect(js_lexer.TCloseParen)

		// This is a weird corner case where automatic semicolon insertion applies
		// even without a newline present
		if p.lexer.Token == js_lexer.TSemicolon {
			p.lexer.Next()
		}
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SDoWhile{Body: body, Test: test}}

	case js_lexer.TWhile:
		p.lexer.Next()
		p.lexer.Expect(js_lexer.TOpenParen)
		test := p.parseExpr(js_ast.LLowest)
		p.lexer.Expect(js_lexer.TCloseParen)
		body := p.parseStmt(parseStmtOpts{})
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SWhile{Test: test, Body: body}}

	case js_lexer.TWith:
		p.addRangeError(p.lexer.Range(), "With statements are not supported")
		panic(js_lexer.LexerPanic{})

	case js_lexer.TSwitch:
		p.lexer.Next()
		p.lexer.Expect(js_lexer.TOpenParen)
		test := p.parseExpr(js_ast.LLowest)
		p.lexer.Expect(js_lexer.TCloseParen)
		p.lexer.Expect(js_lexer.TOpenBrace)
		cases := []js_ast.Case{}
		foundDefault := false

		for p.lexer.Token != js_lexer.TCloseBrace {
			var value *js_ast.Expr
			body := []js_ast.Stmt{}

			if p.lexer.Token == js_lexer.TDefault {
				if foundDefault {
					p.addRangeError(p.lexer.Range(), "Multiple default clauses are not allowed")
					panic(js_lexer.LexerPanic{})
				}
				foundDefault = true
				p.lexer.Next()
				p.lexer.Expect(js_lexer.TColon)
			} else {
				p.lexer.Expect(js_lexer.TCase)
				expr := p.parseExpr(js_ast.LLowest)
				value = &expr
				p.lexer.Expect(js_lexer.TColon)
			}

		caseBody:
			for {
				switch p.lexer.Token {
				case js_lexer.TCloseBrace, js_lexer.TCase, js_lexer.TDefault:
					break caseBody

				default:
					body = append(body, p.parseStmt(parseStmtOpts{}))
				}
			}

			cases = append(cases, js_ast.Case{Value: value, Body: body})
		}

		p.lexer.Expect(js_lexer.TCloseBrace)
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SSwitch{Test: test, Cases: cases}}

	case js_lexer.TTry:
		p.lexer.Next()
		p.lexer.Expect(js_lexer.TOpenBrace)
		body := p.parseStmtsUpTo(js_lexer.TCloseBrace, parseStmtOpts{})
		p.lexer.Next()

		var catch *js_ast.Catch
		var finally *js_ast.Finally

		if p.lexer.Token == js_lexer.TCatch {
			catchLoc := p.lexer.Loc()
			p.lexer.Next()
			var binding *js_ast.Binding

			// The catch binding is optional, and can be omitted
			if p.lexer.Token != js_lexer.TOpenBrace {
				p.lexer.Expect(js_lexer.TOpenParen)
				value := p.parseBinding()
				binding = &value
				p.lexer.Expect(js_lexer.TCloseParen)
			}

			p.lexer.Expect(js_lexer.TOpenBrace)
			stmts := p.parseStmtsUpTo(js_lexer.TCloseBrace, parseStmtOpts{})
			p.lexer.Next()
			catch = &js_ast.Catch{Loc: catchLoc, Binding: binding, Body: stmts}
		}

		if p.lexer.Token == js_lexer.TFinally || catch == nil {
			finallyLoc := p.lexer.Loc()
			p.lexer.Expect(js_lexer.TFinally)
			p.lexer.Expect(js_lexer.TOpenBrace)
			stmts := p.parseStmtsUpTo(js_lexer.TCloseBrace, parseStmtOpts{})
			p.lexer.Next()
			finally = &js_ast.Finally{Loc: finallyLoc, Stmts: stmts}
		}

		return js_ast.Stmt{Loc: loc, Data: &js_ast.STry{Body: body, Catch: catch, Finally: finally}}

	case js_lexer.TFor:
		return p.parseForStmt(loc)

	case js_lexer.TBreak:
		p.lexer.Next()
		name := p.parseLabelName()
		p.lexer.ExpectOrInsertSemicolon()
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SBreak{Label: name}}

	case js_lexer.TContinue:
		p.lexer.Next()
		name := p.parseLabelName()
		p.lexer.ExpectOrInsertSemicolon()
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SContinue{Label: name}}

	case js_lexer.TReturn:
		if !p.fnOpts.isReturnAllowed {
			p.addRangeError(p.lexer.Range(), "A return statement cannot be used here")
		}
		p.lexer.Next()
		var value *js_ast.Expr
		if p.lexer.Token != js_lexer.TSemicolon &&
			!p.lexer.HasNewlineBefore &&
			p.lexer.Token != js_lexer.TCloseBrace &&
			p.lexer.Token != js_lexer.TEndOfFile {
			expr := p.parseExpr(js_ast.LLowest)
			value = &expr
		}
		p.latestReturnHadSemicolon = p.lexer.Token == js_lexer.TSemicolon
		p.lexer.ExpectOrInsertSemicolon()
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SReturn{Value: value}}

	case js_lexer.TThrow:
		p.lexer.Next()
		if p.lexer.HasNewlineBefore {
			p.addError(logging.Loc{Start: loc.Start + 5}, "Unexpected newline after \"throw\"")
			panic(js_lexer.LexerPanic{})
		}
		expr := p.parseExpr(js_ast.LLowest)
		p.lexer.ExpectOrInsertSemicolon()
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SThrow{Value: expr}}

	case js_lexer.TDebugger:
		p.lexer.Next()
		p.lexer.ExpectOrInsertSemicolon()
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SDebugger{}}

	case js_lexer.TOpenBrace:
		p.lexer.Next()
		stmts := p.parseStmtsUpTo(js_lexer.TCloseBrace, parseStmtOpts{})
		p.lexer.Next()
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SBlock{Stmts: stmts}}

	default:
		if p.isLetDeclaration() {
			p.lexer.Next()
			decls := p.parseDecls()
			p.lexer.ExpectOrInsertSemicolon()
			return js_ast.Stmt{Loc: loc, Data: &js_ast.SLocal{Kind: js_ast.LocalLet, Decls: decls}}
		}

		isIdentifier := p.lexer.Token == js_lexer.TIdentifier
		expr := p.parseExpr(js_ast.LLowest)

		// Parse a labeled statement
		if ident, ok := expr.Data.(*js_ast.EIdentifier); ok && isIdentifier && p.lexer.Token == js_lexer.TColon {
			p.lexer.Next()
			name := js_ast.LocName{Loc: expr.Loc, Name: ident.Name}
			stmt := p.parseStmt(parseStmtOpts{})
			return js_ast.Stmt{Loc: loc, Data: &js_ast.SLabel{Name: name, Stmt: stmt}}
		}

		p.lexer.ExpectOrInsertSemicolon()
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SExpr{Value: expr}}
	}
}

// This assumes the "import" token has not been parsed yet
func (p *parser) parseImportStmt(loc logging.Loc) js_ast.Stmt {
	p.lexer.Next()
	stmt := js_ast.SImport{}

	switch p.lexer.Token {
	case js_lexer.TStringLiteral:
		// "import 'path'"

	case js_lexer.TAsterisk:
		// "import * as ns from 'path'"
		p.lexer.Next()
		p.lexer.ExpectContextualKeyword("as")
		stmt.NamespaceName = p.parseImportName()
		p.lexer.ExpectContextualKeyword("from")

	case js_lexer.TOpenBrace:
		// "import {item1, item2} from 'path'"
		items := p.parseImportClause()
		stmt.Items = &items
		p.lexer.ExpectContextualKeyword("from")

	case js_lexer.TIdentifier:
		// "import defaultItem from 'path'"
		stmt.DefaultName = p.parseImportName()

		if p.lexer.Token == js_lexer.TComma {
			p.lexer.Next()
			switch p.lexer.Token {
			case js_lexer.TAsterisk:
				// "import defaultItem, * as ns from 'path'"
				p.lexer.Next()
				p.lexer.ExpectContextualKeyword("as")
				stmt.NamespaceName = p.parseImportName()

			case js_lexer.TOpenBrace:
				// "import defaultItem, {item1, item2} from 'path'"
				items := p.parseImportClause()
				stmt.Items = &items

			default:
				p.lexer.Unexpected()
			}
		}
		p.lexer.ExpectContextualKeyword("from")

	default:
		p.lexer.Unexpected()
	}

	stmt.PathLoc, stmt.Path = p.parsePath()
	p.lexer.ExpectOrInsertSemicolon()
	p.hasImports = true
	return js_ast.Stmt{Loc: loc, Data: &stmt}
}

func (p *parser) parseImportName() *js_ast.LocName {
	r := p.lexer.Range()
	name := &js_ast.LocName{Loc: r.Loc, Name: p.lexer.Identifier}
	p.lexer.Expect(js_lexer.TIdentifier)
	p.checkIdentifier(r, name.Name)
	return name
}

// This assumes the "for" token has not been parsed yet
func (p *parser) parseForStmt(loc logging.Loc) js_ast.Stmt {
	p.lexer.Next()
	p.lexer.Expect(js_lexer.TOpenParen)

	var init *js_ast.Stmt
	var local *js_ast.SLocal
	var test *js_ast.Expr
	var update *js_ast.Expr

	// "in" expressions aren't allowed here
	p.allowIn = false

	initLoc := p.lexer.Loc()
	switch p.lexer.Token {
	case js_lexer.TVar:
		p.lexer.Next()
		local = &js_ast.SLocal{Kind: js_ast.LocalVar, Decls: p.parseDecls()}
		init = &js_ast.Stmt{Loc: initLoc, Data: local}

	case js_lexer.TConst:
		p.lexer.Next()
		local = &js_ast.SLocal{Kind: js_ast.LocalConst, Decls: p.parseDecls()}
		init = &js_ast.Stmt{Loc: initLoc, Data: local}

	case js_lexer.TSemicolon:

	default:
		if p.isLetDeclaration() {
			p.lexer.Next()
			local = &js_ast.SLocal{Kind: js_ast.LocalLet, Decls: p.parseDecls()}
			init = &js_ast.Stmt{Loc: initLoc, Data: local}
		} else {
			init = &js_ast.Stmt{Loc: initLoc, Data: &js_ast.SExpr{Value: p.parseExpr(js_ast.LLowest)}}
		}
	}

	// "in" expressions are allowed again
	p.allowIn = true

	// Detect for-of loops
	if p.lexer.IsContextualKeyword("of") {
		forInit := p.forInOfInit(init, local, "of")
		p.lexer.Next()
		value := p.parseExpr(js_ast.LComma)
		p.lexer.Expect(js_lexer.TCloseParen)
		body := p.parseStmt(parseStmtOpts{})
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SForOf{Init: forInit, Value: value, Body: body}}
	}

	// Detect for-in loops
	if p.lexer.Token == js_lexer.TIn {
		forInit := p.forInOfInit(init, local, "in")
		p.lexer.Next()
		value := p.parseExpr(js_ast.LLowest)
		p.lexer.Expect(js_lexer.TCloseParen)
		body := p.parseStmt(parseStmtOpts{})
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SForIn{Init: forInit, Value: value, Body: body}}
	}

	// Only require "const" statement initializers when we know we're a normal for loop
	if local != nil && local.Kind == js_ast.LocalConst {
		p.requireInitializers(local.Decls)
	}

	p.lexer.Expect(js_lexer.TSemicolon)

	if p.lexer.Token != js_lexer.TSemicolon {
		expr := p.parseExpr(js_ast.LLowest)
		test = &expr
	}

	p.lexer.Expect(js_lexer.TSemicolon)

	if p.lexer.Token != js_lexer.TCloseParen {
		expr := p.parseExpr(js_ast.LLowest)
		update = &expr
	}

	p.lexer.Expect(js_lexer.TCloseParen)
	body := p.parseStmt(parseStmtOpts{})
	return js_ast.Stmt{Loc: loc, Data: &js_ast.SFor{Init: init, Test: test, Update: update, Body: body}}
}

func (p *parser) forInOfInit(init *js_ast.Stmt, local *js_ast.SLocal, loopType string) js_ast.ForInOfInit {
	if init == nil {
		p.lexer.Unexpected()
	}

	if local != nil {
		p.forbidInitializers(local.Decls, loopType, local.Kind == js_ast.LocalVar)
		return js_ast.ForInOfInit{Local: local}
	}

	target := init.Data.(*js_ast.SExpr).Value
	switch target.Data.(type) {
	case *js_ast.EArray, *js_ast.EObject:
		if binding, ok := p.convertExprToBinding(target); ok {
			return js_ast.ForInOfInit{Target: js_ast.ExprOrBinding{Binding: &binding}}
		}
	default:
		if !isValidSimpleAssignTarget(target) {
			p.addError(target.Loc, fmt.Sprintf("Invalid assignment target in for-%s loop", loopType))
		}
	}
	return js_ast.ForInOfInit{Target: js_ast.ExprOrBinding{Expr: &target}}
}

func (p *parser) parseStmtsUpTo(end js_lexer.T, opts parseStmtOpts) []js_ast.Stmt {
	stmts := []js_ast.Stmt{}
	returnWithoutSemicolonStart := int32(-1)

	for p.lexer.Token != end {
		stmt := p.parseStmt(opts)
		stmts = append(stmts, stmt)

		// Warn about ASI and return statements
		if !p.omitWarnings {
			if s, ok := stmt.Data.(*js_ast.SReturn); ok && s.Value == nil && !p.latestReturnHadSemicolon {
				returnWithoutSemicolonStart = stmt.Loc.Start
			} else {
				if returnWithoutSemicolonStart != -1 {
					if _, ok := stmt.Data.(*js_ast.SExpr); ok {
						p.log.AddWarning(p.source, logging.Loc{Start: returnWithoutSemicolonStart + 6},
							"The following expression is not returned because of an automatically-inserted semicolon")
					}
				}
				returnWithoutSemicolonStart = -1
			}
		}
	}

	return stmts
}

type ParseOptions struct {
	OmitWarnings bool
}

// Parses one file. The returned AST is only valid if "ok" is true. Errors and
// warnings are reported through "log".
func Parse(log logging.Log, source logging.Source, options ParseOptions) (result js_ast.AST, ok bool) {
	p := &parser{
		log:          log,
		source:       source,
		allowIn:      true,
		omitWarnings: options.OmitWarnings,
	}

	defer func() {
		r := recover()
		if _, isLexerPanic := r.(js_lexer.LexerPanic); isLexerPanic {
			ok = false
		} else if r != nil {
			panic(r)
		}
	}()

	p.lexer = js_lexer.NewLexer(log, source)

	if p.lexer.Token == js_lexer.THashbang {
		result.Hashbang = p.lexer.Identifier
		p.lexer.Next()
	}

	result.Stmts = p.parseStmtsUpTo(js_lexer.TEndOfFile, parseStmtOpts{isTopLevel: true})
	if p.hasImports {
		result.SourceType = js_ast.SourceTypeModule
	}
	ok = !p.hasErrors
	return
}
