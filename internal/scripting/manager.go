package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// defaultKey is the reserved VM key for the shared fallback script. CallHook
// falls back to this VM when the creature has no script of its own.
const defaultKey = "default"

// Manager owns one sandboxed LState per creature script and dispatches hook
// calls into them. Script files are named <creature-id>.lua; the file
// default.lua, when present, backs every creature without a dedicated script.
//
// Manager is safe for concurrent CallHook after LoadDir completes. Each
// LState is single-threaded; the mutex serializes calls into the same VM.
type Manager struct {
	mu      sync.Mutex
	states  map[string]*lua.LState
	cancels map[string]func()
	limits  map[string]int
	logger  *zap.Logger
}

// NewManager creates a Manager with no scripts loaded.
//
// Precondition: logger must be non-nil.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		states:  make(map[string]*lua.LState),
		cancels: make(map[string]func()),
		limits:  make(map[string]int),
		logger:  logger,
	}
}

// LoadDir walks scriptDir and loads every *.lua file into its own sandboxed
// VM, keyed by the file's base name. Files load in lexicographic order so a
// load failure is reported deterministically.
//
// Precondition: scriptDir must be a readable directory.
// Postcondition: One VM per script file is registered; on error no partial
// state from the failing file is retained.
func (m *Manager) LoadDir(scriptDir string, instLimit int) error {
	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q: %w", scriptDir, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, e.Name())
		}
	}
	sort.Strings(luaFiles)

	for _, name := range luaFiles {
		key := strings.TrimSuffix(name, ".lua")
		if err := m.loadFile(key, filepath.Join(scriptDir, name), instLimit); err != nil {
			return err
		}
	}
	return nil
}

// loadFile creates a sandboxed VM, registers the arena modules, executes the
// script, and registers the VM under key, replacing any previous VM.
func (m *Manager) loadFile(key, path string, instLimit int) error {
	L, cancel := NewSandboxedState(instLimit)
	m.RegisterModules(L)

	if err := L.DoFile(path); err != nil {
		cancel()
		L.Close()
		return fmt.Errorf("scripting: loading %q: %w", path, err)
	}

	m.mu.Lock()
	if old, ok := m.states[key]; ok {
		if oldCancel := m.cancels[key]; oldCancel != nil {
			oldCancel()
		}
		old.Close()
	}
	m.states[key] = L
	m.cancels[key] = cancel
	if instLimit <= 0 {
		instLimit = DefaultInstructionLimit
	}
	m.limits[key] = instLimit
	m.mu.Unlock()
	return nil
}

// HasScript reports whether a VM exists for creatureID or the default key.
func (m *Manager) HasScript(creatureID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.states[creatureID]; ok {
		return true
	}
	_, ok := m.states[defaultKey]
	return ok
}

// CallHook calls the named Lua global function in creatureID's VM, falling
// back to the default VM when the creature has no script. The build callback
// constructs the call arguments against the VM that will run the hook; Lua
// tables are owned by their LState, so arguments cannot be built up front.
//
// Returns (LNil, nil) when no VM exists or the hook is not defined. Lua
// runtime errors are logged at Warn level and never propagated; the caller's
// fallback policy covers them.
func (m *Manager) CallHook(creatureID, hook string, build func(L *lua.LState) []lua.LValue) (lua.LValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := creatureID
	L, ok := m.states[key]
	if !ok {
		key = defaultKey
		L = m.states[key]
	}
	if L == nil {
		return lua.LNil, nil
	}

	fn := L.GetGlobal(hook)
	if fn == lua.LNil {
		return lua.LNil, nil
	}

	var args []lua.LValue
	if build != nil {
		args = build(L)
	}

	// Each hook call gets a fresh instruction budget; the load-time budget
	// would otherwise be spent down across the VM's lifetime.
	ctx, cancel := newCountingContext(m.limits[key])
	L.SetContext(ctx)
	defer cancel()

	if err := L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("creature", creatureID),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, nil
	}

	ret := L.Get(-1)
	L.Pop(1)
	return ret, nil
}

// Close shuts down every VM. The Manager must not be used afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, L := range m.states {
		if cancel := m.cancels[key]; cancel != nil {
			cancel()
		}
		L.Close()
		delete(m.states, key)
		delete(m.cancels, key)
		delete(m.limits, key)
	}
}
