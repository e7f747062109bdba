package contract

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

var ErrBadSignature = errors.New("bad function signature")

var (
	nameRe    = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)
	bareIntRe = regexp.MustCompile(`^(u?int)(\[|$)`)
)

func badSignature(sig, format string, args ...any) error {
	return fmt.Errorf("%w %q: %s", ErrBadSignature, sig, fmt.Sprintf(format, args...))
}

// ParseSignature parses a human-readable Solidity function declaration like
//
//	function getSwordCounts() external view returns (uint256, uint256, uint256)
//
// into an abi.Method. Visibility and data location keywords are accepted and
// ignored. Tuple parameters are not supported.
func ParseSignature(sig string) (abi.Method, error) {
	s := strings.TrimSuffix(strings.TrimSpace(sig), ";")
	rest, ok := strings.CutPrefix(s, "function ")
	if !ok {
		return abi.Method{}, badSignature(sig, "must start with 'function'")
	}
	name, rest, ok := strings.Cut(rest, "(")
	name = strings.TrimSpace(name)
	if !ok || !nameRe.MatchString(name) {
		return abi.Method{}, badSignature(sig, "invalid function name %q", name)
	}
	inputList, rest, ok := strings.Cut(rest, ")")
	if !ok {
		return abi.Method{}, badSignature(sig, "unbalanced parentheses")
	}
	inputs, err := parseParams(sig, inputList)
	if err != nil {
		return abi.Method{}, err
	}

	mutability := "nonpayable"
	var outputs abi.Arguments
	fields := strings.Fields(rest)
	for i := 0; i < len(fields); i++ {
		switch f := fields[i]; {
		case f == "external" || f == "public":
		case f == "view" || f == "pure" || f == "payable" || f == "nonpayable":
			mutability = f
		case strings.HasPrefix(f, "returns"):
			ret := strings.TrimSpace(strings.TrimPrefix(strings.Join(fields[i:], " "), "returns"))
			if !strings.HasPrefix(ret, "(") || !strings.HasSuffix(ret, ")") {
				return abi.Method{}, badSignature(sig, "returns must be followed by a parenthesized list")
			}
			if outputs, err = parseParams(sig, ret[1:len(ret)-1]); err != nil {
				return abi.Method{}, err
			}
			i = len(fields)
		default:
			return abi.Method{}, badSignature(sig, "unexpected %q", f)
		}
	}

	isConst := mutability == "view" || mutability == "pure"
	return abi.NewMethod(name, name, abi.Function, mutability, isConst, mutability == "payable", inputs, outputs), nil
}

func parseParams(sig, list string) (abi.Arguments, error) {
	list = strings.TrimSpace(list)
	if list == "" {
		return nil, nil
	}
	if strings.ContainsAny(list, "()") {
		return nil, badSignature(sig, "tuple parameters are not supported")
	}
	parts := strings.Split(list, ",")
	args := make(abi.Arguments, 0, len(parts))
	for _, p := range parts {
		fields := strings.Fields(p)
		if len(fields) == 0 {
			return nil, badSignature(sig, "empty parameter")
		}
		var argName string
		for _, f := range fields[1:] {
			switch f {
			case "memory", "calldata", "storage":
			default:
				if argName != "" || !nameRe.MatchString(f) {
					return nil, badSignature(sig, "invalid parameter %q", strings.TrimSpace(p))
				}
				argName = f
			}
		}
		typ, err := abi.NewType(bareIntRe.ReplaceAllString(fields[0], "${1}256${2}"), "", nil)
		if err != nil {
			return nil, badSignature(sig, "%v", err)
		}
		args = append(args, abi.Argument{Name: argName, Type: typ})
	}
	return args, nil
}

// ParseABI builds an ABI from function declarations. Identical declarations are
// merged, overloads get suffixed names the same way abigen does.
func ParseABI(signatures []string) (abi.ABI, error) {
	parsed := abi.ABI{Methods: make(map[string]abi.Method)}
	seen := make(map[string]struct{})
	for _, sig := range signatures {
		m, err := ParseSignature(sig)
		if err != nil {
			return abi.ABI{}, err
		}
		if _, ok := seen[m.Sig]; ok {
			continue
		}
		seen[m.Sig] = struct{}{}
		name := abi.ResolveNameConflict(m.RawName, func(s string) bool {
			_, ok := parsed.Methods[s]
			return ok
		})
		if name != m.RawName {
			m = abi.NewMethod(name, m.RawName, abi.Function, m.StateMutability, m.Constant, m.Payable, m.Inputs, m.Outputs)
		}
		parsed.Methods[name] = m
	}
	return parsed, nil
}
