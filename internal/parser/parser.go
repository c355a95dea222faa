// Package parser turns shell source into a classified hir.Block.
//
// Classification happens while parsing: a command name is looked up in the
// SignatureRegistry and, when found, each argument is parsed according to the
// shape its signature declares for that position. This is the upstream
// guarantee alias inference relies on: every internal command in a parsed
// tree has a signature, no positional exceeds the declared arity unless a
// rest parameter exists, and every flag is declared.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	nserrors "github.com/nushape/nushape/internal/errors"
	"github.com/nushape/nushape/internal/hir"
	"github.com/nushape/nushape/internal/lexer"
	"github.com/nushape/nushape/internal/position"
	"github.com/nushape/nushape/internal/shape"
)

// maxCommandWords bounds multi-word command names such as "str to-decimal".
const maxCommandWords = 3

// SignatureRegistry is the view of the command catalogue the parser needs
type SignatureRegistry interface {
	Has(name string) bool
	Get(name string) (*shape.Signature, bool)
}

// Parser holds the token stream and classification state
type Parser struct {
	tokens  []lexer.Token
	pos     int
	reg     SignatureRegistry
	errors  []error
	lastEnd position.Position
}

// New creates a parser over src. Classification is performed lazily against
// reg, so commands registered between ParseNext calls are visible to later
// statements.
func New(src, filename string, reg SignatureRegistry) *Parser {
	return &Parser{
		tokens: lexer.Tokenize(src, filename),
		reg:    reg,
	}
}

// Parse parses the whole input as one block and returns the first error.
func Parse(src, filename string, reg SignatureRegistry) (*hir.Block, error) {
	p := New(src, filename, reg)
	block := p.parseBlock(lexer.TokenEOF)
	if len(p.errors) > 0 {
		return block, p.errors[0]
	}
	return block, nil
}

// ParseNext parses the next top-level statement, which ends at an unnested
// newline or semicolon. Each statement is classified against the registry as
// it stands when ParseNext is called. ok is false once the input is exhausted.
func (p *Parser) ParseNext() (block *hir.Block, ok bool, err error) {
	p.errors = nil
	p.skipSeparators()
	if p.cur().Type == lexer.TokenEOF {
		return nil, false, nil
	}

	start := p.cur().Span.Start
	block = &hir.Block{}
	for {
		tt := p.cur().Type
		if tt == lexer.TokenEOF || tt == lexer.TokenNewline || tt == lexer.TokenSemicolon {
			break
		}
		if p.isCloser(tt) {
			p.errorf(nserrors.ParseError(fmt.Sprintf("unexpected '%s'", p.cur().Literal), p.cur().Span))
			p.advance()
			continue
		}
		block.Pipelines = append(block.Pipelines, p.parsePipeline())
	}
	block.Span = position.Span{Start: start, End: p.lastEnd}

	if len(p.errors) > 0 {
		p.skipLine()
		return block, true, p.errors[0]
	}
	return block, true, nil
}

func (p *Parser) cur() lexer.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	tok := p.tokens[p.pos]
	if tok.Type == lexer.TokenError {
		// Surface the lexical error once, then behave as end of input.
		p.errorf(nserrors.ParseError(tok.Literal, tok.Span))
		p.tokens[p.pos] = lexer.Token{Type: lexer.TokenEOF, Span: tok.Span}
		return p.tokens[p.pos]
	}
	return tok
}

func (p *Parser) peek(n int) lexer.Token {
	if p.pos+n >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+n]
}

func (p *Parser) advance() lexer.Token {
	tok := p.cur()
	if tok.Type != lexer.TokenEOF {
		p.pos++
	}
	p.lastEnd = tok.Span.End
	return tok
}

func (p *Parser) errorf(err error) {
	p.errors = append(p.errors, err)
}

func (p *Parser) isCloser(tt lexer.TokenType) bool {
	return tt == lexer.TokenRBrace || tt == lexer.TokenRParen || tt == lexer.TokenRBracket
}

// isStageEnd reports tokens that terminate a pipeline stage
func (p *Parser) isStageEnd(tt lexer.TokenType) bool {
	switch tt {
	case lexer.TokenPipe, lexer.TokenNewline, lexer.TokenSemicolon, lexer.TokenEOF:
		return true
	}
	return p.isCloser(tt)
}

func (p *Parser) skipSeparators() {
	for {
		tt := p.cur().Type
		if tt != lexer.TokenNewline && tt != lexer.TokenSemicolon {
			return
		}
		p.advance()
	}
}

func (p *Parser) skipNewlines() {
	for p.cur().Type == lexer.TokenNewline {
		p.advance()
	}
}

// skipLine discards tokens up to the end of the current statement
func (p *Parser) skipLine() {
	depth := 0
	for {
		tt := p.cur().Type
		switch {
		case tt == lexer.TokenEOF:
			return
		case (tt == lexer.TokenNewline || tt == lexer.TokenSemicolon) && depth == 0:
			return
		case tt == lexer.TokenLBrace || tt == lexer.TokenLBracket || tt == lexer.TokenLParen || tt == lexer.TokenInvocationStart:
			depth++
		case p.isCloser(tt) && depth > 0:
			depth--
		}
		p.advance()
	}
}

// skipStage discards the remainder of a failed pipeline stage, keeping
// nested delimiters balanced.
func (p *Parser) skipStage() {
	depth := 0
	for {
		tt := p.cur().Type
		if tt == lexer.TokenEOF {
			return
		}
		if depth == 0 && p.isStageEnd(tt) {
			return
		}
		switch {
		case tt == lexer.TokenLBrace || tt == lexer.TokenLBracket || tt == lexer.TokenLParen || tt == lexer.TokenInvocationStart:
			depth++
		case p.isCloser(tt):
			depth--
		}
		p.advance()
	}
}

// parseBlock parses pipelines until closer (which is consumed unless EOF)
func (p *Parser) parseBlock(closer lexer.TokenType) *hir.Block {
	block := &hir.Block{}
	start := p.cur().Span.Start

	for {
		p.skipSeparators()
		tt := p.cur().Type
		if tt == closer {
			break
		}
		if tt == lexer.TokenEOF {
			p.errorf(nserrors.ParseError(fmt.Sprintf("expected '%s' before end of input", closer), p.cur().Span))
			break
		}
		if p.isCloser(tt) {
			p.errorf(nserrors.ParseError(fmt.Sprintf("unexpected '%s'", p.cur().Literal), p.cur().Span))
			p.advance()
			continue
		}
		block.Pipelines = append(block.Pipelines, p.parsePipeline())
	}

	block.Span = position.Span{Start: start, End: p.cur().Span.Start}
	if closer != lexer.TokenEOF && p.cur().Type == closer {
		p.advance()
	}
	return block
}

func (p *Parser) parsePipeline() *hir.Pipeline {
	start := p.cur().Span.Start
	pipeline := &hir.Pipeline{}
	pipeline.Commands = append(pipeline.Commands, p.parseCommand())

	for p.cur().Type == lexer.TokenPipe {
		p.advance()
		p.skipNewlines()
		pipeline.Commands = append(pipeline.Commands, p.parseCommand())
	}

	pipeline.Span = position.Span{Start: start, End: p.lastEnd}
	return pipeline
}

func (p *Parser) parseCommand() hir.ClassifiedCommand {
	tok := p.cur()
	start := tok.Span.Start

	if p.isStageEnd(tok.Type) {
		err := nserrors.ParseError("expected a command", tok.Span)
		p.errorf(err)
		return &hir.ErrorCommand{Span: tok.Span, Err: err}
	}

	if tok.Type == lexer.TokenWord && tok.Literal == "=" {
		p.advance()
		expr := p.parseMath()
		return p.finishExprCommand(expr, start)
	}

	if tok.Type == lexer.TokenWord {
		if name, words := p.matchCommandName(); words > 0 {
			return p.parseInternal(name, words, start)
		}
		if !isValueWord(tok.Literal) {
			return p.parseDynamic(start)
		}
	}

	expr := p.parseMath()
	return p.finishExprCommand(expr, start)
}

func (p *Parser) finishExprCommand(expr hir.Expression, start position.Position) hir.ClassifiedCommand {
	if !p.isStageEnd(p.cur().Type) {
		err := nserrors.ParseError(fmt.Sprintf("unexpected '%s' after expression", p.cur().Literal), p.cur().Span)
		p.errorf(err)
		p.skipStage()
		return &hir.ErrorCommand{Span: position.Span{Start: start, End: p.lastEnd}, Err: err}
	}
	return &hir.ExprCommand{Span: position.Span{Start: start, End: p.lastEnd}, Expr: expr}
}

// matchCommandName finds the longest registered name made of the next words
func (p *Parser) matchCommandName() (string, int) {
	words := make([]string, 0, maxCommandWords)
	for i := 0; i < maxCommandWords; i++ {
		tok := p.peek(i)
		if tok.Type != lexer.TokenWord {
			break
		}
		words = append(words, tok.Literal)
	}

	for n := len(words); n > 0; n-- {
		name := strings.Join(words[:n], " ")
		if p.reg != nil && p.reg.Has(name) {
			return name, n
		}
	}
	return "", 0
}

func (p *Parser) parseDynamic(start position.Position) hir.ClassifiedCommand {
	name := p.advance().Literal
	cmd := &hir.DynamicCommand{Name: name}

	for !p.isStageEnd(p.cur().Type) {
		cmd.Args = append(cmd.Args, p.parseArg(shape.Any))
	}

	cmd.Span = position.Span{Start: start, End: p.lastEnd}
	return cmd
}

func (p *Parser) parseInternal(name string, words int, start position.Position) hir.ClassifiedCommand {
	sig, ok := p.reg.Get(name)
	if !ok {
		panic(fmt.Sprintf("parser: registry reported %q but has no signature", name))
	}

	nameStart := p.cur().Span.Start
	for i := 0; i < words; i++ {
		p.advance()
	}

	cmd := &hir.InternalCommand{
		Name:     name,
		NameSpan: position.Span{Start: nameStart, End: p.lastEnd},
	}
	seen := make(map[string]bool)

	fail := func(err error) hir.ClassifiedCommand {
		p.errorf(err)
		p.skipStage()
		return &hir.ErrorCommand{Span: position.Span{Start: start, End: p.lastEnd}, Err: err}
	}

	for !p.isStageEnd(p.cur().Type) {
		tok := p.cur()

		if flag, param, isFlag, err := p.lookupFlag(sig, tok); isFlag {
			if err != nil {
				return fail(err)
			}
			p.advance()
			seen[flag] = true

			if !param.TakesValue() {
				cmd.Args.Named = append(cmd.Args.Named, hir.NamedArgument{
					Name:  flag,
					Value: hir.NamedValue{Kind: hir.PresentSwitch, Span: tok.Span},
				})
				continue
			}

			if p.isStageEnd(p.cur().Type) {
				return fail(nserrors.ParseError(fmt.Sprintf("flag --%s of '%s' needs a %s value", flag, name, param.Shape), tok.Span))
			}
			value := p.parseArg(param.Shape)
			cmd.Args.Named = append(cmd.Args.Named, hir.NamedArgument{
				Name:  flag,
				Value: hir.NamedValue{Kind: hir.WithValue, Span: tok.Span.Union(value.GetSpan()), Expr: value},
			})
			continue
		}

		argShape, ok := sig.PositionalShape(len(cmd.Args.Positional))
		if !ok {
			return fail(nserrors.ParseError(fmt.Sprintf("too many arguments for '%s'", name), tok.Span))
		}
		cmd.Args.Positional = append(cmd.Args.Positional, p.parseArg(argShape))
	}

	if got := len(cmd.Args.Positional); got < sig.MandatoryCount() {
		missing := sig.Positional[got]
		return fail(nserrors.ParseError(fmt.Sprintf("'%s' is missing required argument <%s>", name, missing.Name), cmd.NameSpan))
	}

	for _, flag := range sig.NamedNames() {
		if seen[flag] {
			continue
		}
		param := sig.Named[flag]
		if param.Kind == shape.MandatoryNamed {
			return fail(nserrors.ParseError(fmt.Sprintf("'%s' is missing required flag --%s", name, flag), cmd.NameSpan))
		}
		kind := hir.AbsentValue
		if param.Kind == shape.Switch {
			kind = hir.AbsentSwitch
		}
		cmd.Args.Named = append(cmd.Args.Named, hir.NamedArgument{Name: flag, Value: hir.NamedValue{Kind: kind}})
	}

	cmd.Span = position.Span{Start: start, End: p.lastEnd}
	return cmd
}

// lookupFlag recognises --long and -s flags. Words such as "-1" or "-" are
// positional values, not flags.
func (p *Parser) lookupFlag(sig *shape.Signature, tok lexer.Token) (string, shape.NamedParam, bool, error) {
	if tok.Type != lexer.TokenWord || !strings.HasPrefix(tok.Literal, "-") || len(tok.Literal) < 2 {
		return "", shape.NamedParam{}, false, nil
	}

	if strings.HasPrefix(tok.Literal, "--") && len(tok.Literal) > 2 {
		name := tok.Literal[2:]
		param, ok := sig.NamedParam(name)
		if !ok {
			return "", shape.NamedParam{}, true, nserrors.ParseError(fmt.Sprintf("unknown flag --%s for '%s'", name, sig.Name), tok.Span)
		}
		return name, param, true, nil
	}

	if _, isNumber := literalFromWord(tok.Literal); isNumber || len(tok.Literal) != 2 {
		return "", shape.NamedParam{}, false, nil
	}

	short := rune(tok.Literal[1])
	name, param, ok := sig.NamedByShort(short)
	if !ok {
		return "", shape.NamedParam{}, true, nserrors.ParseError(fmt.Sprintf("unknown flag -%c for '%s'", short, sig.Name), tok.Span)
	}
	return name, param, true, nil
}

// parseArg parses one argument according to the shape expected at its position
func (p *Parser) parseArg(expected shape.SyntaxShape) hir.Expression {
	tok := p.cur()

	switch tok.Type {
	case lexer.TokenVariable:
		p.advance()
		return variablePath(tok)

	case lexer.TokenInvocationStart:
		p.advance()
		block := p.parseBlock(lexer.TokenRParen)
		span := position.Span{Start: tok.Span.Start, End: p.lastEnd}
		return &hir.PathExpr{Span: span, Head: &hir.Invocation{Span: span, Block: block}}

	case lexer.TokenLParen:
		p.advance()
		expr := p.parseMath()
		if p.cur().Type != lexer.TokenRParen {
			p.errorf(nserrors.ParseError("expected ')'", p.cur().Span))
			return expr
		}
		p.advance()
		return expr

	case lexer.TokenLBrace:
		p.advance()
		block := p.parseBlock(lexer.TokenRBrace)
		expr := &hir.BlockExpr{Span: position.Span{Start: tok.Span.Start, End: p.lastEnd}, Block: block}
		return p.checkShape(expr, expected, "block", shape.Block)

	case lexer.TokenLBracket:
		return p.checkShape(p.parseList(), expected, "table", shape.Table)

	case lexer.TokenString:
		p.advance()
		return p.wordLiteral(tok, expected, true)

	case lexer.TokenWord:
		p.advance()
		return p.wordLiteral(tok, expected, false)
	}

	err := nserrors.ParseError(fmt.Sprintf("unexpected '%s'", tok.Literal), tok.Span)
	p.errorf(err)
	p.advance()
	return &hir.Garbage{Span: tok.Span, Raw: tok.Literal}
}

func (p *Parser) checkShape(expr hir.Expression, expected shape.SyntaxShape, found string, accepted ...shape.SyntaxShape) hir.Expression {
	switch expected {
	case shape.Any, shape.Unit, shape.Math:
		return expr
	}
	for _, s := range accepted {
		if s == expected {
			return expr
		}
	}
	p.errorf(nserrors.TypeMismatch(expected.String(), found, expr.GetSpan()))
	return &hir.Garbage{Span: expr.GetSpan(), Raw: expr.String()}
}

func (p *Parser) parseList() hir.Expression {
	open := p.advance()
	list := &hir.List{}

	for {
		p.skipNewlines()
		tt := p.cur().Type
		if tt == lexer.TokenRBracket {
			p.advance()
			break
		}
		if tt == lexer.TokenEOF {
			p.errorf(nserrors.ParseError("expected ']' before end of input", open.Span))
			break
		}
		if tt == lexer.TokenPipe || tt == lexer.TokenSemicolon || tt == lexer.TokenRBrace || tt == lexer.TokenRParen {
			p.errorf(nserrors.ParseError(fmt.Sprintf("unexpected '%s' in table", p.cur().Literal), p.cur().Span))
			p.advance()
			continue
		}
		list.Items = append(list.Items, p.parseArg(shape.Any))
	}

	list.Span = position.Span{Start: open.Span.Start, End: p.lastEnd}
	return list
}

func variablePath(tok lexer.Token) hir.Expression {
	parts := strings.Split(tok.Literal, ".")
	v := &hir.Variable{Span: tok.Span, Kind: hir.VariableOther, Name: parts[0]}
	if parts[0] == "it" {
		v.Kind = hir.VariableIt
	}
	return &hir.PathExpr{Span: tok.Span, Head: v, Tail: parts[1:]}
}

// wordLiteral converts a bare word or quoted string to the literal the
// expected shape calls for
func (p *Parser) wordLiteral(tok lexer.Token, expected shape.SyntaxShape, quoted bool) hir.Expression {
	text := tok.Literal
	found := fmt.Sprintf("word '%s'", text)
	if quoted {
		found = fmt.Sprintf("string '%s'", text)
	}
	mismatch := func() hir.Expression {
		p.errorf(nserrors.TypeMismatch(expected.String(), found, tok.Span))
		return &hir.Garbage{Span: tok.Span, Raw: text}
	}
	lit := func(kind hir.LiteralKind, value interface{}) hir.Expression {
		return &hir.Literal{Span: tok.Span, Kind: kind, Raw: text, Value: value}
	}

	switch expected {
	case shape.String:
		return lit(hir.LiteralString, text)
	case shape.Path:
		return lit(hir.LiteralPath, text)
	case shape.Pattern:
		return lit(hir.LiteralPattern, text)
	case shape.ColumnPath:
		return lit(hir.LiteralColumnPath, strings.Split(text, "."))
	case shape.Block, shape.Table:
		return mismatch()
	}

	if quoted {
		if expected == shape.Int || expected == shape.Number || expected == shape.Range {
			return mismatch()
		}
		return lit(hir.LiteralString, text)
	}

	if r, ok := p.rangeFromWord(tok); ok {
		if expected == shape.Int || expected == shape.Number {
			return mismatch()
		}
		return r
	}

	value, isNumber := literalFromWord(text)
	switch expected {
	case shape.Int:
		if v, ok := value.(int64); ok {
			return lit(hir.LiteralInt, v)
		}
		return mismatch()
	case shape.Number:
		switch v := value.(type) {
		case int64:
			return lit(hir.LiteralInt, v)
		case float64:
			return lit(hir.LiteralDecimal, v)
		}
		return mismatch()
	case shape.Range:
		return mismatch()
	}

	if isNumber {
		if v, ok := value.(int64); ok {
			return lit(hir.LiteralInt, v)
		}
		return lit(hir.LiteralDecimal, value)
	}
	switch text {
	case "true":
		return lit(hir.LiteralBool, true)
	case "false":
		return lit(hir.LiteralBool, false)
	}
	return lit(hir.LiteralWord, text)
}

// parseMath parses an operator expression up to the end of the stage
func (p *Parser) parseMath() hir.Expression {
	return p.parseBinary(1)
}

func (p *Parser) parseBinary(minPrec int) hir.Expression {
	left := p.parseOperand()
	for {
		tok := p.cur()
		if tok.Type != lexer.TokenWord {
			return left
		}
		op, ok := hir.LookupOperator(tok.Literal)
		if !ok || op.Precedence() < minPrec {
			return left
		}
		p.advance()
		right := p.parseBinary(op.Precedence() + 1)
		left = &hir.Binary{
			Span:     left.GetSpan().Union(right.GetSpan()),
			Left:     left,
			Operator: op,
			Right:    right,
		}
	}
}

func (p *Parser) parseOperand() hir.Expression {
	tok := p.cur()
	if p.isStageEnd(tok.Type) {
		err := nserrors.ParseError("expected an expression", tok.Span)
		p.errorf(err)
		return &hir.Garbage{Span: tok.Span}
	}
	return p.parseArg(shape.Any)
}

// rangeFromWord parses a..b with integer bounds
func (p *Parser) rangeFromWord(tok lexer.Token) (hir.Expression, bool) {
	from, to, found := strings.Cut(tok.Literal, "..")
	if !found {
		return nil, false
	}
	a, errA := strconv.ParseInt(from, 10, 64)
	b, errB := strconv.ParseInt(to, 10, 64)
	if errA != nil || errB != nil {
		return nil, false
	}
	return &hir.RangeExpr{
		Span: tok.Span,
		From: &hir.Literal{Span: tok.Span, Kind: hir.LiteralInt, Raw: from, Value: a},
		To:   &hir.Literal{Span: tok.Span, Kind: hir.LiteralInt, Raw: to, Value: b},
	}, true
}

// isValueWord reports words that start an expression rather than name a command
func isValueWord(word string) bool {
	if _, ok := literalFromWord(word); ok {
		return true
	}
	from, to, found := strings.Cut(word, "..")
	if !found {
		return false
	}
	_, errA := strconv.ParseInt(from, 10, 64)
	_, errB := strconv.ParseInt(to, 10, 64)
	return errA == nil && errB == nil
}

// literalFromWord parses numeric words. Only digits, sign, dot and exponent
// characters are considered so words like "nan" stay words.
func literalFromWord(word string) (interface{}, bool) {
	if word == "" || strings.Trim(word, "0123456789+-.eE") != "" || strings.Trim(word, "+-.eE") == "" {
		return nil, false
	}
	if v, err := strconv.ParseInt(word, 10, 64); err == nil {
		return v, true
	}
	if v, err := strconv.ParseFloat(word, 64); err == nil {
		return v, true
	}
	return nil, false
}
