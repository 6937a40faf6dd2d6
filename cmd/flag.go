package cmd

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// FlagBuilder defines a flag on one or more commands, binds it into viper and
// attaches the environment variable it can also be read from.
type FlagBuilder struct {
	commands   []*cobra.Command
	key        string
	persistent bool
}

func init() {
	viper.AutomaticEnv()
}

// NewFlagBuilder creates a FlagBuilder for the local flags of command
func NewFlagBuilder(command *cobra.Command) *FlagBuilder {
	fb := &FlagBuilder{}
	if command != nil {
		fb.commands = append(fb.commands, command)
	}
	return fb
}

// NewPersistentFlagBuilder creates a FlagBuilder whose flags are inherited by subcommands
func NewPersistentFlagBuilder(command *cobra.Command) *FlagBuilder {
	fb := NewFlagBuilder(command)
	fb.persistent = true
	return fb
}

// Flag resets the builder so the next flag can be defined
func (fb *FlagBuilder) Flag() *FlagBuilder {
	fb.key = ""
	return fb
}

// String attaches a string flag
func (fb *FlagBuilder) String(key, defaultValue, description string) *FlagBuilder {
	return fb.define(key, func(fs *pflag.FlagSet) { fs.String(key, defaultValue, description) })
}

// StringSlice attaches a comma separated string flag
func (fb *FlagBuilder) StringSlice(key string, defaultValue []string, description string) *FlagBuilder {
	return fb.define(key, func(fs *pflag.FlagSet) { fs.StringSlice(key, defaultValue, description) })
}

// Int attaches an int flag
func (fb *FlagBuilder) Int(key string, defaultValue int, description string) *FlagBuilder {
	return fb.define(key, func(fs *pflag.FlagSet) { fs.Int(key, defaultValue, description) })
}

// Bool attaches a bool flag
func (fb *FlagBuilder) Bool(key string, defaultValue bool, description string) *FlagBuilder {
	return fb.define(key, func(fs *pflag.FlagSet) { fs.Bool(key, defaultValue, description) })
}

// Duration attaches a duration flag
func (fb *FlagBuilder) Duration(key string, defaultValue time.Duration, description string) *FlagBuilder {
	return fb.define(key, func(fs *pflag.FlagSet) { fs.Duration(key, defaultValue, description) })
}

// Bind binds the current flag into viper under its own name
func (fb *FlagBuilder) Bind() *FlagBuilder {
	for _, command := range fb.commands {
		Must(viper.BindPFlag(fb.key, fb.flags(command).Lookup(fb.key)))
	}
	return fb
}

// Env lets the current flag be set from env
func (fb *FlagBuilder) Env(env string) *FlagBuilder {
	Must(viper.BindEnv(fb.key, env))
	return fb
}

// Require marks the current flag as required
func (fb *FlagBuilder) Require() *FlagBuilder {
	for _, command := range fb.commands {
		if fb.persistent {
			Must(command.MarkPersistentFlagRequired(fb.key))
			continue
		}
		Must(command.MarkFlagRequired(fb.key))
	}
	return fb
}

func (fb *FlagBuilder) define(key string, fn func(fs *pflag.FlagSet)) *FlagBuilder {
	if fb.key != "" {
		Must(fmt.Errorf("flag %q is still being built, call Flag() before defining %q", fb.key, key))
	}
	fb.key = key

	for _, command := range fb.commands {
		fn(fb.flags(command))
	}
	return fb
}

func (fb *FlagBuilder) flags(command *cobra.Command) *pflag.FlagSet {
	if fb.persistent {
		return command.PersistentFlags()
	}
	return command.Flags()
}

// Must exits when a command cannot be set up
func Must(err error) {
	if err != nil {
		log.Printf("failed to initialize: %s\n", err.Error())
		os.Exit(1)
	}
}
