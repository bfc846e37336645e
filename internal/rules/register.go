package rules

import (
	"github.com/donaldgifford/deflint/internal/rules/style"
)

func init() {
	Register(&style.DefWithParentheses{})
	Register(&style.DefWithoutParentheses{})
}
