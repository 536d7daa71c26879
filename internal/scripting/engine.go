package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM hosting chat-command scripts.
// Handlers run concurrently, so the VM is guarded by a mutex; command
// execution is short and rare relative to packet traffic.
type Engine struct {
	mu  sync.Mutex
	vm  *lua.LState
	log *zap.Logger
}

// CommandContext is the caller info handed to a Lua command.
type CommandContext struct {
	UserID     int32
	Username   string
	Privileges int32
	Channel    string // empty for private commands
	Online     int
}

// NewEngine creates a Lua engine and loads all scripts from the given
// directory. A missing directory yields an engine with no commands.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}
	if err := e.loadDir(scriptsDir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load scripts: %w", err)
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

// OnCommand offers a "!"-prefixed chat line to the Lua on_command hook.
// Returns the reply text and whether the command was handled.
func (e *Engine) OnCommand(name string, args []string, ctx CommandContext) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fn := e.vm.GetGlobal("on_command")
	if fn == lua.LNil {
		return "", false
	}

	argv := e.vm.NewTable()
	for _, a := range args {
		argv.Append(lua.LString(a))
	}
	caller := e.vm.NewTable()
	caller.RawSetString("user_id", lua.LNumber(ctx.UserID))
	caller.RawSetString("username", lua.LString(ctx.Username))
	caller.RawSetString("privileges", lua.LNumber(ctx.Privileges))
	caller.RawSetString("channel", lua.LString(ctx.Channel))
	caller.RawSetString("online", lua.LNumber(ctx.Online))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lua.LString(name), argv, caller); err != nil {
		e.log.Error("lua on_command error", zap.String("command", name), zap.Error(err))
		return "", false
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	if result == lua.LNil {
		return "", false
	}
	return lua.LVAsString(result), true
}

// Close releases the VM.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vm.Close()
}
