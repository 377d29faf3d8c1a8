package browser

import (
	"errors"
	"fmt"
	"strings"

	json "github.com/json-iterator/go"
)

// Each DOM primitive is one function expression called with JSON-encoded
// arguments. Elements are looked up on every call.
const (
	jsCount = `(sel) => document.querySelectorAll(sel).length`

	jsChildCount = `(sel, i) => {
	const el = document.querySelectorAll(sel)[i];
	return el ? el.childElementCount : -1;
}`

	jsInnerTexts = `(sel) => Array.from(document.querySelectorAll(sel), (el) => el.innerText || el.textContent || '')`

	jsViewportHeight = `() => window.innerHeight`

	jsStorageItem = `(key) => {
	const value = window.localStorage.getItem(key);
	return value === null ? { found: false, value: '' } : { found: true, value: value };
}`

	// React tracks the last value it saw; a plain assignment is swallowed.
	// Resetting the tracker and dispatching a simulated input event makes the
	// form state pick the value up exactly once.
	jsSetValue = `(sel, i, value) => {
	const el = document.querySelectorAll(sel)[i];
	if (!el) return false;
	const proto = el instanceof HTMLTextAreaElement ? HTMLTextAreaElement.prototype : HTMLInputElement.prototype;
	const setter = Object.getOwnPropertyDescriptor(proto, 'value').set;
	const last = el.value;
	setter.call(el, value);
	if (el._valueTracker) el._valueTracker.setValue(last);
	const ev = new Event('input', { bubbles: true });
	ev.simulated = true;
	el.dispatchEvent(ev);
	return true;
}`

	jsClick = `(sel, i) => {
	const el = document.querySelectorAll(sel)[i];
	if (!el) return false;
	if (typeof el.click === 'function') {
		el.click();
	} else {
		el.dispatchEvent(new MouseEvent('click', { bubbles: true, cancelable: true, view: window }));
	}
	return true;
}`

	jsSetStyle = `(sel, i, prop, value) => {
	const el = document.querySelectorAll(sel)[i];
	if (!el) return false;
	el.style[prop] = value;
	return true;
}`

	jsNavigate = `(url) => { window.location.assign(url); return true; }`

	jsReload = `() => { window.location.reload(); return true; }`

	jsConfirm = `(message) => window.confirm(message)`
)

// keyForwarder is installed on every document. It forwards the bound keys to
// the named CDP binding as a JSON payload.
const keyForwarder = `(() => {
	const binding = %s;
	const keys = new Set(%s);
	window.addEventListener('keydown', (ev) => {
		if (!keys.has(ev.key) || typeof window[binding] !== 'function') return;
		ev.preventDefault();
		window[binding](JSON.stringify({ key: ev.key }));
	}, true);
})();`

// jsCall renders fn applied to args.
func jsCall(fn string, args ...interface{}) (string, error) {
	encoded := make([]string, len(args))
	for i, arg := range args {
		b, err := json.Marshal(arg)
		if err != nil {
			return "", fmt.Errorf("failed to encode script argument %d: %w", i, err)
		}
		encoded[i] = string(b)
	}
	return fmt.Sprintf("(%s)(%s)", fn, strings.Join(encoded, ", ")), nil
}

// keyForwarderScript renders keyForwarder for binding and keys.
func keyForwarderScript(binding string, keys []string) (string, error) {
	name, err := json.Marshal(binding)
	if err != nil {
		return "", err
	}
	list, err := json.Marshal(keys)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(keyForwarder, name, list), nil
}

// KeyPress is the payload the key forwarder sends.
type KeyPress struct {
	Key string `json:"key"`
}

// ParseKeyPress decodes a key forwarder payload.
func ParseKeyPress(payload string) (KeyPress, error) {
	var kp KeyPress
	if err := json.Unmarshal([]byte(payload), &kp); err != nil {
		return kp, fmt.Errorf("malformed key payload: %w", err)
	}
	if kp.Key == "" {
		return kp, errors.New("key payload has no key")
	}
	return kp, nil
}
