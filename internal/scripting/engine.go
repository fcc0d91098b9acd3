package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM holding the tuning scripts.
// The reward flow runs on the wave scheduler's goroutines, so calls are
// serialized by mu.
type Engine struct {
	mu  sync.Mutex
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts from the given directory.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}

	// core helpers first, then feature scripts that may call them
	for _, sub := range []string{"core", "reward"} {
		p := filepath.Join(scriptsDir, sub)
		if err := e.loadDir(p); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}

	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vm.Close()
}

// UpgradeWeight calls the Lua upgrade_weight function to scale an upgrade's
// base weight by rarity and wave. Without the function, or on any script
// error, the base weight is used.
func (e *Engine) UpgradeWeight(rarity string, base, wave int) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	fn := e.vm.GetGlobal("upgrade_weight")
	if fn == lua.LNil {
		return base
	}

	ctx := e.vm.NewTable()
	ctx.RawSetString("rarity", lua.LString(rarity))
	ctx.RawSetString("base", lua.LNumber(base))
	ctx.RawSetString("wave", lua.LNumber(wave))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, ctx); err != nil {
		e.log.Error("lua upgrade_weight error", zap.Error(err))
		return base
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	n, ok := result.(lua.LNumber)
	if !ok {
		e.log.Error("lua upgrade_weight returned non-number", zap.String("type", result.Type().String()))
		return base
	}
	if n < 0 {
		return 0
	}
	return int(n)
}

// OfferCount calls the Lua offer_count function to decide how many upgrades
// are offered after a wave. Falls back to def.
func (e *Engine) OfferCount(wave, def int) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	fn := e.vm.GetGlobal("offer_count")
	if fn == lua.LNil {
		return def
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lua.LNumber(wave), lua.LNumber(def)); err != nil {
		e.log.Error("lua offer_count error", zap.Error(err))
		return def
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	n := int(lua.LVAsNumber(result))
	if n < 1 {
		return def
	}
	return n
}
