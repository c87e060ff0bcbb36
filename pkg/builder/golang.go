package builder

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/l3aro/linepdg/pkg/pdg"
)

// goFrame is a break/continue target: a loop, switch or select.
type goFrame struct {
	label     string
	isLoop    bool
	breaks    []pdg.Handle
	continues []pdg.Handle
}

// goBuilder walks a Go function body and fills a graph.
type goBuilder struct {
	content []byte
	lines   []string
	g       *pdg.Graph
	diags   []pdg.Result

	frames       []*goFrame
	pendingLabel string

	reads map[pdg.Handle]map[string]bool
}

func buildGo(content []byte, functionName string) (*Output, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())
	tree := parser.Parse(nil, content)
	defer tree.Close()

	funcNode := findGoFunction(tree.RootNode(), functionName, content)
	if funcNode == nil {
		return nil, pdg.NewAnalysisError(pdg.KindNotFound, "function %q not found", functionName)
	}

	b := &goBuilder{
		content: content,
		lines:   strings.Split(strings.ReplaceAll(string(content), "\r\n", "\n"), "\n"),
		g:       pdg.New(functionName),
		reads:   make(map[pdg.Handle]map[string]bool),
	}

	entry := b.lineNode(funcNode)
	if entry.HasError() || entry.Node() == nil {
		return nil, pdg.NewAnalysisError(pdg.KindParse, "function %q header could not be parsed", functionName)
	}
	h := entry.Handle()
	if err := b.g.SetEntry(h); err != nil {
		return nil, err
	}

	b.declareParameters(funcNode.ChildByFieldName("receiver"), h)
	b.declareParameters(funcNode.ChildByFieldName("parameters"), h)
	b.declareParameters(funcNode.ChildByFieldName("result"), h)

	if body := funcNode.ChildByFieldName("body"); body != nil {
		b.statements(body, h, []pdg.Handle{h})
	}

	return &Output{Graph: b.g, Diagnostics: b.diags}, nil
}

func findGoFunction(node *sitter.Node, funcName string, content []byte) *sitter.Node {
	if node == nil {
		return nil
	}

	switch node.Type() {
	case "function_declaration", "method_declaration":
		if name := node.ChildByFieldName("name"); name != nil && name.Content(content) == funcName {
			return node
		}
		return nil
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		if found := findGoFunction(node.NamedChild(i), funcName, content); found != nil {
			return found
		}
	}
	return nil
}

// lineNode wraps the creation of the node for the line n starts on.
// Comments are skipped, syntax errors fail with a parse result.
func (b *goBuilder) lineNode(n *sitter.Node) pdg.Result {
	line := int(n.StartPoint().Row) + 1

	if n.Type() == "comment" {
		return pdg.Skipped()
	}
	if n.IsError() || n.IsMissing() {
		return pdg.FailKind(pdg.KindParse, "syntax error at line %d: %s", line, b.info(line))
	}
	if !isCompound(n.Type()) && n.HasError() {
		return pdg.FailKind(pdg.KindParse, "malformed statement at line %d: %s", line, b.info(line))
	}

	return b.g.Node(b.g.AddLine(line, b.info(line)))
}

func (b *goBuilder) info(line int) string {
	if line-1 < 0 || line-1 >= len(b.lines) {
		return ""
	}
	return strings.TrimSpace(b.lines[line-1])
}

func isCompound(nodeType string) bool {
	switch nodeType {
	case "if_statement", "for_statement", "expression_switch_statement", "type_switch_statement",
		"select_statement", "labeled_statement", "block", "function_declaration", "method_declaration",
		"expression_case", "type_case", "communication_case", "default_case":
		return true
	}
	return false
}

// enter creates the node for statement n, links it into control flow after
// preds and makes it control dependent on ctrl.
func (b *goBuilder) enter(n *sitter.Node, ctrl pdg.Handle, preds []pdg.Handle) (pdg.Handle, bool) {
	r := b.lineNode(n)
	if r.HasError() {
		b.diags = append(b.diags, r)
		return pdg.InvalidHandle, false
	}
	if r.Node() == nil {
		return pdg.InvalidHandle, false
	}

	h := r.Handle()
	for _, p := range preds {
		if p != h {
			_ = b.g.AddFlow(p, h)
		}
	}
	if ctrl != pdg.InvalidHandle && ctrl != h {
		_ = b.g.AddEdge(pdg.NewTypedEdge(ctrl, h, pdg.EdgeTypeCD))
	}
	return h, true
}

// statements processes the statements contained in a block, statement list
// or case clause, returning the lines control falls through from.
func (b *goBuilder) statements(n *sitter.Node, ctrl pdg.Handle, preds []pdg.Handle) []pdg.Handle {
	for _, s := range statementChildren(n) {
		preds = b.statement(s, ctrl, preds)
	}
	return preds
}

func statementChildren(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child == nil {
			continue
		}
		if child.Type() == "statement_list" {
			out = append(out, statementChildren(child)...)
			continue
		}
		if isStatement(child.Type()) {
			out = append(out, child)
		}
	}
	return out
}

func isStatement(nodeType string) bool {
	switch nodeType {
	case "expression_statement", "short_var_declaration", "assignment_statement",
		"inc_statement", "dec_statement", "send_statement", "return_statement",
		"go_statement", "defer_statement", "if_statement", "for_statement",
		"expression_switch_statement", "type_switch_statement", "select_statement",
		"labeled_statement", "fallthrough_statement", "break_statement",
		"continue_statement", "goto_statement", "block", "empty_statement",
		"var_declaration", "const_declaration", "type_declaration", "ERROR":
		return true
	}
	return false
}

// statement processes one statement and returns its fall-through lines.
func (b *goBuilder) statement(n *sitter.Node, ctrl pdg.Handle, preds []pdg.Handle) []pdg.Handle {
	switch n.Type() {
	case "block":
		return b.statements(n, ctrl, preds)
	case "labeled_statement":
		return b.labeled(n, ctrl, preds)
	case "if_statement":
		return b.ifStatement(n, ctrl, preds)
	case "for_statement":
		return b.forStatement(n, ctrl, preds)
	case "expression_switch_statement", "type_switch_statement", "select_statement":
		return b.switchStatement(n, ctrl, preds)
	}

	h, ok := b.enter(n, ctrl, preds)
	if !ok {
		return preds
	}

	switch n.Type() {
	case "return_statement", "goto_statement":
		b.collect(n, h, false)
		return nil
	case "break_statement":
		if f := b.target(n, false); f != nil {
			f.breaks = append(f.breaks, h)
		}
		return nil
	case "continue_statement":
		if f := b.target(n, true); f != nil {
			f.continues = append(f.continues, h)
		}
		return nil
	}

	b.collect(n, h, false)
	return []pdg.Handle{h}
}

// target finds the frame a break or continue leaves.
func (b *goBuilder) target(n *sitter.Node, loopOnly bool) *goFrame {
	label := ""
	if l := firstNamedOfType(n, "label_name"); l != nil {
		label = l.Content(b.content)
	}
	for i := len(b.frames) - 1; i >= 0; i-- {
		f := b.frames[i]
		if label != "" {
			if f.label == label {
				return f
			}
			continue
		}
		if !loopOnly || f.isLoop {
			return f
		}
	}
	return nil
}

func (b *goBuilder) labeled(n *sitter.Node, ctrl pdg.Handle, preds []pdg.Handle) []pdg.Handle {
	if l := n.ChildByFieldName("label"); l != nil {
		b.pendingLabel = l.Content(b.content)
	}
	for _, s := range statementChildren(n) {
		preds = b.statement(s, ctrl, preds)
	}
	b.pendingLabel = ""
	return preds
}

func (b *goBuilder) pushFrame(isLoop bool) *goFrame {
	f := &goFrame{label: b.pendingLabel, isLoop: isLoop}
	b.pendingLabel = ""
	b.frames = append(b.frames, f)
	return f
}

func (b *goBuilder) popFrame() {
	b.frames = b.frames[:len(b.frames)-1]
}

func (b *goBuilder) ifStatement(n *sitter.Node, ctrl pdg.Handle, preds []pdg.Handle) []pdg.Handle {
	h, ok := b.enter(n, ctrl, preds)
	if !ok {
		return preds
	}

	b.collect(n.ChildByFieldName("initializer"), h, false)
	b.collect(n.ChildByFieldName("condition"), h, false)

	var exits []pdg.Handle
	if cons := n.ChildByFieldName("consequence"); cons != nil {
		exits = append(exits, b.statements(cons, h, []pdg.Handle{h})...)
	} else {
		exits = append(exits, h)
	}

	alt := n.ChildByFieldName("alternative")
	switch {
	case alt == nil:
		exits = append(exits, h)
	case alt.Type() == "if_statement":
		exits = append(exits, b.ifStatement(alt, h, []pdg.Handle{h})...)
	default:
		exits = append(exits, b.statements(alt, h, []pdg.Handle{h})...)
	}
	return exits
}

func (b *goBuilder) forStatement(n *sitter.Node, ctrl pdg.Handle, preds []pdg.Handle) []pdg.Handle {
	f := b.pushFrame(true)
	defer b.popFrame()

	h, ok := b.enter(n, ctrl, preds)
	if !ok {
		return preds
	}

	body := n.ChildByFieldName("body")
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child == nil || (body != nil && sameNode(child, body)) {
			continue
		}
		switch child.Type() {
		case "for_clause":
			b.collect(child.ChildByFieldName("initializer"), h, false)
			b.collect(child.ChildByFieldName("condition"), h, false)
			b.collect(child.ChildByFieldName("update"), h, false)
		case "range_clause":
			b.rangeClause(child, h)
		default:
			b.collect(child, h, false)
		}
	}

	var bodyExits []pdg.Handle
	if body != nil {
		bodyExits = b.statements(body, h, []pdg.Handle{h})
	}
	for _, e := range append(bodyExits, f.continues...) {
		_ = b.g.AddFlow(e, h)
	}

	return append([]pdg.Handle{h}, f.breaks...)
}

func (b *goBuilder) rangeClause(n *sitter.Node, h pdg.Handle) {
	b.collect(n.ChildByFieldName("right"), h, false)

	left := n.ChildByFieldName("left")
	if left == nil {
		return
	}
	declared := hasToken(n, ":=")
	for _, id := range identifiers(left) {
		b.write(h, id.Content(b.content), declared)
	}
}

func (b *goBuilder) switchStatement(n *sitter.Node, ctrl pdg.Handle, preds []pdg.Handle) []pdg.Handle {
	f := b.pushFrame(false)
	defer b.popFrame()

	h, ok := b.enter(n, ctrl, preds)
	if !ok {
		return preds
	}

	b.collect(n.ChildByFieldName("initializer"), h, false)
	b.collect(n.ChildByFieldName("value"), h, false)
	if alias := n.ChildByFieldName("alias"); alias != nil {
		for _, id := range identifiers(alias) {
			b.write(h, id.Content(b.content), true)
		}
	}

	var exits []pdg.Handle
	hasDefault := false
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c == nil {
			continue
		}
		switch c.Type() {
		case "default_case":
			hasDefault = true
		case "expression_case", "type_case", "communication_case":
		default:
			continue
		}
		exits = append(exits, b.caseClause(c, h)...)
	}
	if !hasDefault {
		exits = append(exits, h)
	}
	return append(exits, f.breaks...)
}

// caseClause makes the case line control dependent on the switch header and
// the case body control dependent on the case line.
func (b *goBuilder) caseClause(c *sitter.Node, switchHead pdg.Handle) []pdg.Handle {
	ch, ok := b.enter(c, switchHead, []pdg.Handle{switchHead})
	if !ok {
		return nil
	}

	if c.Type() == "communication_case" {
		if comm := c.ChildByFieldName("communication"); comm != nil {
			b.collect(comm, ch, false)
		}
	} else if v := c.ChildByFieldName("value"); v != nil {
		b.collect(v, ch, false)
	}

	preds := []pdg.Handle{ch}
	for _, s := range statementChildren(c) {
		if c.Type() == "communication_case" && s.StartByte() == firstNamedStart(c) {
			continue
		}
		preds = b.statement(s, ch, preds)
	}
	return preds
}

func sameNode(a, b *sitter.Node) bool {
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

func firstNamedStart(n *sitter.Node) uint32 {
	if n.NamedChildCount() == 0 {
		return ^uint32(0)
	}
	return n.NamedChild(0).StartByte()
}

func (b *goBuilder) declareParameters(list *sitter.Node, h pdg.Handle) {
	if list == nil {
		return
	}
	for i := 0; i < int(list.NamedChildCount()); i++ {
		p := list.NamedChild(i)
		if p == nil {
			continue
		}
		switch p.Type() {
		case "parameter_declaration", "variadic_parameter_declaration":
			for j := 0; j < int(p.NamedChildCount()); j++ {
				if id := p.NamedChild(j); id != nil && id.Type() == "identifier" {
					b.write(h, id.Content(b.content), true)
				}
			}
		}
	}
}

// collect records the writes and reads of n on line h. Inside function
// literals only reads are recorded.
func (b *goBuilder) collect(n *sitter.Node, h pdg.Handle, inClosure bool) {
	if n == nil {
		return
	}

	switch n.Type() {
	case "identifier":
		b.read(h, n.Content(b.content))

	case "short_var_declaration":
		b.collect(n.ChildByFieldName("right"), h, inClosure)
		if !inClosure {
			for _, id := range identifiers(n.ChildByFieldName("left")) {
				b.write(h, id.Content(b.content), true)
			}
		}

	case "assignment_statement":
		b.collect(n.ChildByFieldName("right"), h, inClosure)
		compound := !hasToken(n, "=")
		left := n.ChildByFieldName("left")
		if left == nil {
			return
		}
		for i := 0; i < int(left.NamedChildCount()); i++ {
			target := left.NamedChild(i)
			if target == nil {
				continue
			}
			if target.Type() != "identifier" {
				// Element and field updates read their operands.
				b.collect(target, h, inClosure)
				continue
			}
			name := target.Content(b.content)
			if compound {
				b.read(h, name)
			}
			if !inClosure {
				b.write(h, name, false)
			}
		}

	case "inc_statement", "dec_statement":
		if n.NamedChildCount() == 0 {
			return
		}
		target := n.NamedChild(0)
		if target.Type() != "identifier" {
			b.collect(target, h, inClosure)
			return
		}
		name := target.Content(b.content)
		b.read(h, name)
		if !inClosure {
			b.write(h, name, false)
		}

	case "var_spec", "const_spec":
		b.collect(n.ChildByFieldName("value"), h, inClosure)
		if inClosure {
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if id := n.NamedChild(i); id != nil && id.Type() == "identifier" {
				b.write(h, id.Content(b.content), true)
			}
		}

	case "receive_statement":
		b.collect(n.ChildByFieldName("right"), h, inClosure)
		if inClosure {
			return
		}
		declared := hasToken(n, ":=")
		for _, id := range identifiers(n.ChildByFieldName("left")) {
			b.write(h, id.Content(b.content), declared)
		}

	case "selector_expression":
		b.collect(n.ChildByFieldName("operand"), h, inClosure)

	case "call_expression":
		if fn := n.ChildByFieldName("function"); fn != nil && fn.Type() != "identifier" {
			b.collect(fn, h, inClosure)
		}
		b.collect(n.ChildByFieldName("arguments"), h, inClosure)

	case "keyed_element":
		if n.NamedChildCount() > 1 {
			b.collect(n.NamedChild(int(n.NamedChildCount())-1), h, inClosure)
		}

	case "func_literal":
		b.collect(n.ChildByFieldName("body"), h, true)

	case "type_identifier", "field_identifier", "package_identifier", "label_name",
		"comment", "type_declaration":

	default:
		for i := 0; i < int(n.NamedChildCount()); i++ {
			b.collect(n.NamedChild(i), h, inClosure)
		}
	}
}

func (b *goBuilder) read(h pdg.Handle, name string) {
	if !isVariableName(name) || b.reads[h][name] {
		return
	}
	if err := b.g.RecordRead(pdg.NewVariableRead(h, name)); err != nil {
		return
	}
	if b.reads[h] == nil {
		b.reads[h] = make(map[string]bool)
	}
	b.reads[h][name] = true
}

func (b *goBuilder) write(h pdg.Handle, name string, declared bool) {
	if !isVariableName(name) {
		return
	}
	// Repeated writes on one line are all kept; the last one wins in reaching definitions.
	_ = b.g.RecordWrite(pdg.NewVariableWrite(h, name, declared))
}

func isVariableName(name string) bool {
	return name != "" && name != "_" && !isGoBuiltin(name)
}

func identifiers(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	if n.Type() == "identifier" {
		return []*sitter.Node{n}
	}
	var out []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c != nil && c.Type() == "identifier" {
			out = append(out, c)
		}
	}
	return out
}

func hasToken(n *sitter.Node, token string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); c != nil && !c.IsNamed() && c.Type() == token {
			return true
		}
	}
	return false
}

func firstNamedOfType(n *sitter.Node, nodeType string) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c != nil && c.Type() == nodeType {
			return c
		}
	}
	return nil
}

func isGoBuiltin(name string) bool {
	switch name {
	case "append", "cap", "clear", "close", "complex", "copy", "delete", "imag", "len",
		"make", "max", "min", "new", "panic", "print", "println", "real", "recover",
		"true", "false", "nil", "iota":
		return true
	}
	return false
}
