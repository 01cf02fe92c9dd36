package sqlmap

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

var statementKinds = map[string]bool{
	"select": true, "insert": true, "update": true, "delete": true,
}

const includeMark = "\x00"

// Parse reads one mapper document. Files that are not MyBatis mappers yield
// no statements and no error. Dynamic SQL elements are flattened to their
// text and <include> references are expanded from <sql> fragments.
func Parse(path string, content []byte) ([]Statement, error) {
	if !bytes.Contains(content, []byte("<mapper")) {
		return nil, nil
	}
	dec := xml.NewDecoder(bytes.NewReader(content))
	dec.Strict = false

	var (
		namespace string
		stmts     []Statement
		fragments = make(map[string]string)
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, parseErr(path, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch name := start.Name.Local; {
		case name == "mapper":
			namespace = attr(start, "namespace")
		case name == "sql" && namespace != "":
			text, err := elementText(dec)
			if err != nil {
				return nil, parseErr(path, err)
			}
			fragments[attr(start, "id")] = text
		case statementKinds[name] && namespace != "":
			line, _ := dec.InputPos()
			text, err := elementText(dec)
			if err != nil {
				return nil, parseErr(path, err)
			}
			stmts = append(stmts, Statement{
				Namespace: namespace,
				ID:        attr(start, "id"),
				Kind:      name,
				SQL:       text,
				File:      path,
				Line:      line,
			})
		}
	}

	for i := range stmts {
		stmts[i].SQL = normalize(expand(stmts[i].SQL, fragments, namespace, 0))
	}
	return stmts, nil
}

// elementText collects the character data of the element just opened,
// descending into nested elements. <include refid="x"/> leaves a marker
// that expand resolves.
func elementText(dec *xml.Decoder) (string, error) {
	var b strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if t.Name.Local == "include" {
				b.WriteString(" " + includeMark + attr(t, "refid") + includeMark + " ")
			}
		case xml.EndElement:
			depth--
		case xml.CharData:
			b.Write(t)
			b.WriteByte(' ')
		}
	}
	return b.String(), nil
}

func expand(sql string, fragments map[string]string, namespace string, depth int) string {
	if depth > 8 || !strings.Contains(sql, includeMark) {
		return strings.ReplaceAll(sql, includeMark, "")
	}
	var b strings.Builder
	parts := strings.Split(sql, includeMark)
	for i, p := range parts {
		if i%2 == 0 {
			b.WriteString(p)
			continue
		}
		ref := strings.TrimPrefix(p, namespace+".")
		if frag, ok := fragments[ref]; ok {
			b.WriteString(expand(frag, fragments, namespace, depth+1))
		}
	}
	return b.String()
}

func attr(e xml.StartElement, name string) string {
	for _, a := range e.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
