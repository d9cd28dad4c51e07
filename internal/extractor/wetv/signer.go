package wetv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/dop251/goja"

	"github.com/Belphemur/SubtitleRipper/internal/apperrors"
)

// CKeyParams are the inputs the platform mixes into the cKey request signature.
type CKeyParams struct {
	VID        string
	Timestamp  string
	AppVersion string
	GUID       string
	Platform   string
	URL        string
}

// Signer produces the cKey parameter of a getvinfo request.
type Signer interface {
	Sign(ctx context.Context, params CKeyParams) (string, error)
}

// signerFunction is the global the signer script must define:
// makeCKey(vid, tm, appVer, guid, platform, url) -> string
const signerFunction = "makeCKey"

const signerPrelude = `
var globalThis = this;
if (typeof window === 'undefined') { var window = this; }
if (typeof document === 'undefined') { var document = {}; }
if (typeof navigator === 'undefined') { var navigator = { userAgent: '' }; }
`

// ScriptSigner runs an operator supplied JavaScript implementation of the cKey
// algorithm. Calls are serialized because a goja runtime is single threaded.
type ScriptSigner struct {
	mu sync.Mutex
	vm *goja.Runtime
	fn goja.Callable
}

// LoadScriptSigner reads the signer script at path.
func LoadScriptSigner(path string) (*ScriptSigner, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, &apperrors.ErrSignerUnavailable{Reason: err.Error()}
	}
	return NewScriptSigner(string(src))
}

// NewScriptSigner evaluates src and binds its makeCKey function.
func NewScriptSigner(src string) (*ScriptSigner, error) {
	vm := goja.New()
	if _, err := vm.RunString(signerPrelude); err != nil {
		return nil, &apperrors.ErrSignerUnavailable{Reason: err.Error()}
	}
	if _, err := vm.RunString(src); err != nil {
		return nil, &apperrors.ErrSignerUnavailable{Reason: fmt.Sprintf("script failed: %v", err)}
	}

	value := vm.Get(signerFunction)
	if value == nil || goja.IsUndefined(value) || goja.IsNull(value) {
		return nil, &apperrors.ErrSignerUnavailable{Reason: signerFunction + " is not defined"}
	}
	fn, ok := goja.AssertFunction(value)
	if !ok {
		return nil, &apperrors.ErrSignerUnavailable{Reason: signerFunction + " is not a function"}
	}
	return &ScriptSigner{vm: vm, fn: fn}, nil
}

// Sign implements Signer. Cancelling ctx interrupts a running script.
func (s *ScriptSigner) Sign(ctx context.Context, p CKeyParams) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.vm.ClearInterrupt()
	stop := context.AfterFunc(ctx, func() {
		s.vm.Interrupt(ctx.Err())
	})
	defer stop()

	out, err := s.fn(goja.Undefined(),
		s.vm.ToValue(p.VID),
		s.vm.ToValue(p.Timestamp),
		s.vm.ToValue(p.AppVersion),
		s.vm.ToValue(p.GUID),
		s.vm.ToValue(p.Platform),
		s.vm.ToValue(p.URL),
	)
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) && ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &apperrors.ErrSignerUnavailable{Reason: err.Error()}
	}

	key := out.String()
	if key == "" || goja.IsUndefined(out) || goja.IsNull(out) {
		return "", &apperrors.ErrSignerUnavailable{Reason: signerFunction + " returned no key"}
	}
	return key, nil
}
