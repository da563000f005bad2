package data

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/vinicius-lino-figueiredo/treedb/domain"
)

// RegexKey is the single key of a JSON object read as a pattern, as in
// {"$regex": "^a"}.
const RegexKey = "$regex"

// ParseJSON reads a JSON document into a [domain.Value]. Objects whose only
// key is "$regex" with a string value become patterns.
func ParseJSON(data []byte) (domain.Value, error) {
	p := &parser{data: data, n: len(data)}
	return p.parse()
}

type parser struct {
	data []byte
	i    int
	n    int
}

func (p *parser) parse() (domain.Value, error) {
	p.skip()
	val, err := p.value()
	if err != nil {
		return domain.Value{}, err
	}
	p.skip()
	if p.i != p.n {
		return domain.Value{}, fmt.Errorf("trailing data at offset %d", p.i)
	}
	return val, nil
}

func (p *parser) skip() {
	for p.i < p.n {
		switch p.data[p.i] {
		case ' ', '\t', '\n', '\r':
			p.i++
		default:
			return
		}
	}
}

func (p *parser) value() (domain.Value, error) {
	if p.i >= p.n {
		return domain.Value{}, errors.New("unexpected end of input")
	}
	switch p.data[p.i] {
	case '{':
		return p.obj()
	case '[':
		return p.arr()
	case '"':
		s, err := p.str()
		return domain.String(s), err
	case 't':
		return p.literal("true", domain.Bool(true))
	case 'f':
		return p.literal("false", domain.Bool(false))
	case 'n':
		return p.literal("null", domain.Null())
	default:
		return p.num()
	}
}

func (p *parser) obj() (domain.Value, error) {
	p.i++
	p.skip()
	fields := make(map[string]domain.Value)
	if p.i < p.n && p.data[p.i] == '}' {
		p.i++
		return domain.Map(fields), nil
	}
	for {
		p.skip()
		if p.i >= p.n {
			return domain.Value{}, errors.New("unexpected end of object")
		}
		key, err := p.str()
		if err != nil {
			return domain.Value{}, err
		}
		p.skip()
		if err := p.consume(':'); err != nil {
			return domain.Value{}, err
		}
		p.skip()
		val, err := p.value()
		if err != nil {
			return domain.Value{}, err
		}
		fields[key] = val
		p.skip()
		if p.i < p.n && p.data[p.i] == '}' {
			p.i++
			break
		}
		if err := p.consume(','); err != nil {
			return domain.Value{}, err
		}
	}
	return p.pattern(fields)
}

func (p *parser) pattern(fields map[string]domain.Value) (domain.Value, error) {
	expr, ok := fields[RegexKey]
	if len(fields) != 1 || !ok || expr.Kind() != domain.KindString {
		return domain.Map(fields), nil
	}
	re, err := regexp.Compile(expr.Str())
	if err != nil {
		return domain.Value{}, err
	}
	return domain.Pattern(re), nil
}

func (p *parser) arr() (domain.Value, error) {
	p.i++
	p.skip()
	items := []domain.Value{}
	if p.i < p.n && p.data[p.i] == ']' {
		p.i++
		return domain.Array(items...), nil
	}
	for {
		p.skip()
		val, err := p.value()
		if err != nil {
			return domain.Value{}, err
		}
		items = append(items, val)
		p.skip()
		if p.i < p.n && p.data[p.i] == ']' {
			p.i++
			break
		}
		if err := p.consume(','); err != nil {
			return domain.Value{}, err
		}
	}
	return domain.Array(items...), nil
}

func (p *parser) consume(c byte) error {
	if p.i >= p.n || p.data[p.i] != c {
		return fmt.Errorf("expected %q at offset %d", c, p.i)
	}
	p.i++
	return nil
}

func (p *parser) str() (string, error) {
	if p.data[p.i] != '"' {
		return "", fmt.Errorf("expected string at offset %d", p.i)
	}
	p.i++
	var sb strings.Builder
	for p.i < p.n {
		c := p.data[p.i]
		switch {
		case c == '"':
			p.i++
			return sb.String(), nil
		case c == '\\':
			if err := p.escape(&sb); err != nil {
				return "", err
			}
		case c < ' ':
			return "", fmt.Errorf("control character in string at offset %d", p.i)
		case c < utf8.RuneSelf:
			sb.WriteByte(c)
			p.i++
		default:
			r, size := utf8.DecodeRune(p.data[p.i:])
			sb.WriteRune(r)
			p.i += size
		}
	}
	return "", errors.New("unterminated string")
}

var escapes = map[byte]byte{
	'"': '"', '\\': '\\', '/': '/', '\'': '\'',
	'b': '\b', 'f': '\f', 'n': '\n', 'r': '\r', 't': '\t',
}

func (p *parser) escape(sb *strings.Builder) error {
	if p.i+1 >= p.n {
		return errors.New("unterminated escape")
	}
	c := p.data[p.i+1]
	if e, ok := escapes[c]; ok {
		sb.WriteByte(e)
		p.i += 2
		return nil
	}
	if c != 'u' {
		return fmt.Errorf("unknown escape character %q", c)
	}
	r, ok := p.hex(p.i)
	if !ok {
		return fmt.Errorf("invalid unicode escape at offset %d", p.i)
	}
	p.i += 6
	if utf16.IsSurrogate(r) {
		if low, ok := p.hex(p.i); ok {
			if dec := utf16.DecodeRune(r, low); dec != unicode.ReplacementChar {
				p.i += 6
				r = dec
			}
		}
		if utf16.IsSurrogate(r) {
			r = unicode.ReplacementChar
		}
	}
	sb.WriteRune(r)
	return nil
}

// hex reads a \uXXXX sequence starting at offset i.
func (p *parser) hex(i int) (rune, bool) {
	if i+6 > p.n || p.data[i] != '\\' || p.data[i+1] != 'u' {
		return 0, false
	}
	r, err := strconv.ParseUint(string(p.data[i+2:i+6]), 16, 32)
	if err != nil {
		return 0, false
	}
	return rune(r), true
}

func (p *parser) num() (domain.Value, error) {
	start := p.i
	for p.i < p.n {
		c := p.data[p.i]
		if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+' || c == 'e' || c == 'E' {
			p.i++
			continue
		}
		break
	}
	s := string(p.data[start:p.i])
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return domain.Value{}, fmt.Errorf("invalid number %q", s)
	}
	return domain.Number(f), nil
}

func (p *parser) literal(lit string, val domain.Value) (domain.Value, error) {
	end := p.i + len(lit)
	if end > p.n || string(p.data[p.i:end]) != lit {
		return domain.Value{}, fmt.Errorf("invalid literal at offset %d", p.i)
	}
	p.i = end
	return val, nil
}
