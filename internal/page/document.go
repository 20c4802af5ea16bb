package page

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dop251/goja"

	"github.com/GriffinCanCode/kui/internal/dom"
)

// hidden property linking a JS wrapper to its element
const nodeKey = "__kui_node__"

var tagNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]*$`)

// bindDocument exposes a DOM subset as the global document
func (r *Runtime) bindDocument() error {
	document := r.vm.NewObject()

	methods := map[string]func(goja.FunctionCall) goja.Value{
		"querySelector":        r.docQuerySelector,
		"querySelectorAll":     r.docQuerySelectorAll,
		"getElementById":       r.docGetElementByID,
		"getElementsByTagName": r.docGetElementsByTagName,
		"createElement":        r.docCreateElement,
	}
	for name, fn := range methods {
		if err := document.Set(name, fn); err != nil {
			return err
		}
	}

	getters := map[string]func() goja.Value{
		"body":            func() goja.Value { return r.wrap(r.doc.Body()) },
		"head":            func() goja.Value { return r.wrap(r.doc.Head()) },
		"documentElement": func() goja.Value { return r.wrap(r.doc.DocumentElement()) },
		"readyState":      func() goja.Value { return r.vm.ToValue(string(r.doc.ReadyState())) },
	}
	for name, get := range getters {
		if err := r.defineGetter(document, name, get); err != nil {
			return err
		}
	}

	return r.vm.Set("document", document)
}

func (r *Runtime) docQuerySelector(call goja.FunctionCall) goja.Value {
	el, err := r.doc.QuerySelector(call.Argument(0).String())
	if err != nil {
		panic(r.syntaxError(err))
	}
	return r.wrap(el)
}

func (r *Runtime) docQuerySelectorAll(call goja.FunctionCall) goja.Value {
	els, err := r.doc.QuerySelectorAll(call.Argument(0).String())
	if err != nil {
		panic(r.syntaxError(err))
	}
	return r.wrapList(els)
}

func (r *Runtime) docGetElementByID(call goja.FunctionCall) goja.Value {
	els, err := r.doc.QueryXPath(fmt.Sprintf("//*[@id=%s]", xpathLiteral(call.Argument(0).String())))
	if err != nil || len(els) == 0 {
		return goja.Null()
	}
	return r.wrap(els[0])
}

func (r *Runtime) docGetElementsByTagName(call goja.FunctionCall) goja.Value {
	tag := call.Argument(0).String()
	expr := "//*"
	if tag != "*" {
		if !tagNamePattern.MatchString(tag) {
			return r.wrapList(nil)
		}
		expr = "//" + strings.ToLower(tag)
	}
	els, err := r.doc.QueryXPath(expr)
	if err != nil {
		return r.wrapList(nil)
	}
	return r.wrapList(els)
}

func (r *Runtime) docCreateElement(call goja.FunctionCall) goja.Value {
	tag := call.Argument(0).String()
	if !tagNamePattern.MatchString(tag) {
		panic(r.vm.NewTypeError("createElement: invalid tag name %q", tag))
	}
	return r.wrap(r.doc.CreateElement(tag))
}

// wrap returns the JS object for el, reusing it so identity comparisons work
func (r *Runtime) wrap(el *dom.Element) goja.Value {
	if el == nil {
		return goja.Null()
	}
	if obj, ok := el.Handle(r); ok {
		return obj.(*goja.Object)
	}

	obj := r.vm.NewObject()
	_ = obj.DefineDataProperty(nodeKey, r.vm.ToValue(el), goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_FALSE)

	methods := map[string]func(goja.FunctionCall) goja.Value{
		"getAttribute": func(call goja.FunctionCall) goja.Value {
			v, ok := el.GetAttribute(call.Argument(0).String())
			if !ok {
				return goja.Null()
			}
			return r.vm.ToValue(v)
		},
		"hasAttribute": func(call goja.FunctionCall) goja.Value {
			return r.vm.ToValue(el.HasAttribute(call.Argument(0).String()))
		},
		"setAttribute": func(call goja.FunctionCall) goja.Value {
			el.SetAttribute(call.Argument(0).String(), call.Argument(1).String())
			return goja.Undefined()
		},
		"removeAttribute": func(call goja.FunctionCall) goja.Value {
			el.RemoveAttribute(call.Argument(0).String())
			return goja.Undefined()
		},
		"appendChild": func(call goja.FunctionCall) goja.Value {
			child := r.elementOf(call.Argument(0))
			if child == nil {
				panic(r.vm.NewTypeError("appendChild: argument is not an element"))
			}
			if err := el.AppendChild(child); err != nil {
				panic(r.vm.NewGoError(err))
			}
			return call.Argument(0)
		},
		"insertAdjacentHTML": func(call goja.FunctionCall) goja.Value {
			position := strings.ToLower(call.Argument(0).String())
			if position != "beforeend" {
				panic(r.vm.NewTypeError("insertAdjacentHTML: unsupported position %q", position))
			}
			if err := el.AppendHTML(call.Argument(1).String()); err != nil {
				panic(r.vm.NewGoError(err))
			}
			return goja.Undefined()
		},
		"remove": func(call goja.FunctionCall) goja.Value {
			el.Remove()
			return goja.Undefined()
		},
		"querySelector": func(call goja.FunctionCall) goja.Value {
			found, err := el.QuerySelector(call.Argument(0).String())
			if err != nil {
				panic(r.syntaxError(err))
			}
			return r.wrap(found)
		},
		"querySelectorAll": func(call goja.FunctionCall) goja.Value {
			found, err := el.QuerySelectorAll(call.Argument(0).String())
			if err != nil {
				panic(r.syntaxError(err))
			}
			return r.wrapList(found)
		},
		"matches": func(call goja.FunctionCall) goja.Value {
			ok, err := el.Matches(call.Argument(0).String())
			if err != nil {
				panic(r.syntaxError(err))
			}
			return r.vm.ToValue(ok)
		},
	}
	for name, fn := range methods {
		_ = obj.Set(name, fn)
	}

	_ = r.defineGetter(obj, "tagName", func() goja.Value { return r.vm.ToValue(el.TagName()) })
	_ = r.defineGetter(obj, "id", func() goja.Value { return r.vm.ToValue(el.ID()) })
	_ = r.defineGetter(obj, "textContent", func() goja.Value { return r.vm.ToValue(el.TextContent()) })
	_ = r.defineGetter(obj, "outerHTML", func() goja.Value { return r.vm.ToValue(el.OuterHTML()) })
	_ = r.defineGetter(obj, "parentElement", func() goja.Value { return r.wrap(el.Parent()) })
	_ = r.defineGetter(obj, "isConnected", func() goja.Value { return r.vm.ToValue(el.IsConnected()) })
	_ = r.defineGetter(obj, "children", func() goja.Value { return r.wrapList(el.Children()) })

	innerGet := r.vm.ToValue(func(call goja.FunctionCall) goja.Value {
		return r.vm.ToValue(el.InnerHTML())
	})
	innerSet := r.vm.ToValue(func(call goja.FunctionCall) goja.Value {
		if err := el.SetInnerHTML(call.Argument(0).String()); err != nil {
			panic(r.vm.NewGoError(err))
		}
		return goja.Undefined()
	})
	_ = obj.DefineAccessorProperty("innerHTML", innerGet, innerSet, goja.FLAG_FALSE, goja.FLAG_TRUE)

	el.SetHandle(r, obj)
	return obj
}

func (r *Runtime) wrapList(els []*dom.Element) goja.Value {
	values := make([]interface{}, len(els))
	for i, el := range els {
		values[i] = r.wrap(el)
	}
	return r.vm.NewArray(values...)
}

// elementOf returns the element behind a wrapper, or nil
func (r *Runtime) elementOf(v goja.Value) *dom.Element {
	obj, ok := v.(*goja.Object)
	if !ok || obj == nil {
		return nil
	}
	inner := obj.Get(nodeKey)
	if inner == nil {
		return nil
	}
	el, _ := inner.Export().(*dom.Element)
	return el
}

func (r *Runtime) defineGetter(obj *goja.Object, name string, get func() goja.Value) error {
	getter := r.vm.ToValue(func(call goja.FunctionCall) goja.Value {
		return get()
	})
	return obj.DefineAccessorProperty(name, getter, goja.Undefined(), goja.FLAG_FALSE, goja.FLAG_TRUE)
}

// syntaxError builds a JS SyntaxError for an invalid selector
func (r *Runtime) syntaxError(err error) *goja.Object {
	obj, cerr := r.vm.New(r.vm.Get("SyntaxError"), r.vm.ToValue(err.Error()))
	if cerr != nil {
		return r.vm.NewGoError(err)
	}
	return obj
}

// xpathLiteral quotes s as an XPath string literal
func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, `'`) {
		return `'` + s + `'`
	}
	parts := strings.Split(s, `"`)
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = `"` + p + `"`
	}
	return "concat(" + strings.Join(quoted, `, '"', `) + ")"
}
