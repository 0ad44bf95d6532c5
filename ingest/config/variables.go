/*
DESCRIPTION
  variables.go contains a list of structs that provide a variable Name, type in
  a string format, a function for updating the variable in the Config struct
  from a string, and finally, a validation function to check the validity of the
  corresponding field value in the Config.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ausocean/hydrophone/device/file"
	"github.com/ausocean/hydrophone/device/shm"
	"github.com/ausocean/hydrophone/device/udp"
	"github.com/ausocean/utils/logging"
)

// Config map Keys.
const (
	KeyAddress        = "Address"
	KeyClipDuration   = "ClipDuration"
	KeyInput          = "Input"
	KeyInputPath      = "InputPath"
	KeyLogging        = "logging"
	KeyLoop           = "Loop"
	KeyMetricsAddress = "MetricsAddress"
	KeyOutputPath     = "OutputPath"
	KeyPhoneMask      = "PhoneMask"
	KeyPollInitial    = "PollInitial"
	KeyPollMin        = "PollMin"
	KeyPollMax        = "PollMax"
	KeyProducerRetry  = "ProducerRetry"
	KeyReadTimeout    = "ReadTimeout"
	KeyRecvBuffer     = "RecvBuffer"
	KeySHMDir         = "SHMDir"
	KeySHMName        = "SHMName"
	KeySuppress       = "Suppress"
)

// Config map parameter types.
const (
	typeString   = "string"
	typeUint     = "uint"
	typeBool     = "bool"
	typeDuration = "duration"
)

// Default variable values.
const (
	defaultInput        = InputFile
	defaultInputPath    = file.Stdin
	defaultVerbosity    = logging.Info
	defaultClipDuration = 4 * time.Second
	defaultOutputPath   = "/tmp"

	// Shared memory defaults.
	defaultSHMDir        = shm.DefaultDir
	defaultSHMName       = shm.DefaultName
	defaultPollInitial   = shm.DefaultInitialDelay
	defaultPollMin       = shm.DefaultMinDelay
	defaultPollMax       = shm.DefaultMaxDelay
	defaultProducerRetry = shm.DefaultRetry

	// UDP defaults.
	defaultReadTimeout = udp.DefaultReadTimeout
	defaultRecvBuffer  = udp.DefaultRecvBuffer
)

// Variables describes the variables that can be used for ingest control.
// These structs provide the name and type of variable, a function for updating
// this variable in a Config, and a function for validating the value of the variable.
var Variables = []struct {
	Name     string
	Type     string
	Update   func(*Config, string)
	Validate func(*Config)
}{
	{
		Name:   KeyAddress,
		Type:   typeString,
		Update: func(c *Config, v string) { c.Address = v },
		Validate: func(c *Config) {
			if (c.Input == InputTCP || c.Input == InputUDP) && c.Address == "" {
				c.Logger.Warning("no address for network input, using file input")
				c.Input = defaultInput
			}
		},
	},
	{
		Name:   KeyClipDuration,
		Type:   typeDuration,
		Update: func(c *Config, v string) { c.ClipDuration = parseDuration(KeyClipDuration, v, c) },
		Validate: func(c *Config) {
			if c.ClipDuration <= 0 {
				c.LogInvalidField(KeyClipDuration, defaultClipDuration)
				c.ClipDuration = defaultClipDuration
			}
		},
	},
	{
		Name: KeyInput,
		Type: "enum:file,tcp,udp,shm",
		Update: func(c *Config, v string) {
			c.Input = parseEnum(
				KeyInput,
				v,
				map[string]uint8{
					"file": InputFile,
					"tcp":  InputTCP,
					"udp":  InputUDP,
					"shm":  InputSHM,
				},
				c,
			)
		},
		Validate: func(c *Config) {
			switch c.Input {
			case InputFile, InputTCP, InputUDP, InputSHM:
			default:
				c.LogInvalidField(KeyInput, defaultInput)
				c.Input = defaultInput
			}
		},
	},
	{
		Name:   KeyInputPath,
		Type:   typeString,
		Update: func(c *Config, v string) { c.InputPath = v },
		Validate: func(c *Config) {
			if c.Input == InputFile && c.InputPath == "" {
				c.LogInvalidField(KeyInputPath, defaultInputPath)
				c.InputPath = defaultInputPath
			}
		},
	},
	{
		Name: KeyLogging,
		Type: "enum:Debug,Info,Warning,Error,Fatal",
		Update: func(c *Config, v string) {
			switch v {
			case "Debug":
				c.LogLevel = logging.Debug
			case "Info":
				c.LogLevel = logging.Info
			case "Warning":
				c.LogLevel = logging.Warning
			case "Error":
				c.LogLevel = logging.Error
			case "Fatal":
				c.LogLevel = logging.Fatal
			default:
				c.Logger.Warning("invalid Logging param", "value", v)
			}
		},
		Validate: func(c *Config) {
			switch c.LogLevel {
			case logging.Debug, logging.Info, logging.Warning, logging.Error, logging.Fatal:
			default:
				c.LogInvalidField("LogLevel", defaultVerbosity)
				c.LogLevel = defaultVerbosity
			}
		},
	},
	{
		Name:   KeyLoop,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.Loop = parseBool(KeyLoop, v, c) },
	},
	{
		Name:   KeyMetricsAddress,
		Type:   typeString,
		Update: func(c *Config, v string) { c.MetricsAddress = v },
	},
	{
		Name:   KeyOutputPath,
		Type:   typeString,
		Update: func(c *Config, v string) { c.OutputPath = v },
		Validate: func(c *Config) {
			if c.OutputPath == "" {
				c.LogInvalidField(KeyOutputPath, defaultOutputPath)
				c.OutputPath = defaultOutputPath
			}
		},
	},
	{
		Name: KeyPhoneMask,
		Type: typeString,
		Update: func(c *Config, v string) {
			mask, err := ParseMask(v)
			if err != nil {
				c.Logger.Warning("invalid PhoneMask param", "value", v, "error", err.Error())
				return
			}
			c.PhoneMask = mask
		},
	},
	{
		Name:   KeyPollInitial,
		Type:   typeDuration,
		Update: func(c *Config, v string) { c.PollInitial = parseDuration(KeyPollInitial, v, c) },
		Validate: func(c *Config) {
			if c.PollInitial <= 0 {
				c.LogInvalidField(KeyPollInitial, defaultPollInitial)
				c.PollInitial = defaultPollInitial
			}
		},
	},
	{
		Name:   KeyPollMin,
		Type:   typeDuration,
		Update: func(c *Config, v string) { c.PollMin = parseDuration(KeyPollMin, v, c) },
		Validate: func(c *Config) {
			if c.PollMin <= 0 {
				c.LogInvalidField(KeyPollMin, defaultPollMin)
				c.PollMin = defaultPollMin
			}
		},
	},
	{
		Name:   KeyPollMax,
		Type:   typeDuration,
		Update: func(c *Config, v string) { c.PollMax = parseDuration(KeyPollMax, v, c) },
		Validate: func(c *Config) {
			if c.PollMax <= 0 || c.PollMax < c.PollMin {
				c.LogInvalidField(KeyPollMax, defaultPollMax)
				c.PollMin = defaultPollMin
				c.PollMax = defaultPollMax
			}
		},
	},
	{
		Name:   KeyProducerRetry,
		Type:   typeDuration,
		Update: func(c *Config, v string) { c.ProducerRetry = parseDuration(KeyProducerRetry, v, c) },
		Validate: func(c *Config) {
			if c.ProducerRetry <= 0 {
				c.LogInvalidField(KeyProducerRetry, defaultProducerRetry)
				c.ProducerRetry = defaultProducerRetry
			}
		},
	},
	{
		Name:   KeyReadTimeout,
		Type:   typeDuration,
		Update: func(c *Config, v string) { c.ReadTimeout = parseDuration(KeyReadTimeout, v, c) },
		Validate: func(c *Config) {
			if c.ReadTimeout <= 0 {
				c.LogInvalidField(KeyReadTimeout, defaultReadTimeout)
				c.ReadTimeout = defaultReadTimeout
			}
		},
	},
	{
		Name:   KeyRecvBuffer,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.RecvBuffer = parseUint(KeyRecvBuffer, v, c) },
		Validate: func(c *Config) {
			c.RecvBuffer = lessThanOrEqual(KeyRecvBuffer, c.RecvBuffer, 0, c, defaultRecvBuffer)
		},
	},
	{
		Name:   KeySHMDir,
		Type:   typeString,
		Update: func(c *Config, v string) { c.SHMDir = v },
		Validate: func(c *Config) {
			if c.SHMDir == "" {
				c.LogInvalidField(KeySHMDir, defaultSHMDir)
				c.SHMDir = defaultSHMDir
			}
		},
	},
	{
		Name:   KeySHMName,
		Type:   typeString,
		Update: func(c *Config, v string) { c.SHMName = v },
		Validate: func(c *Config) {
			if c.SHMName == "" {
				c.LogInvalidField(KeySHMName, defaultSHMName)
				c.SHMName = defaultSHMName
			}
		},
	},
	{
		Name:   KeySuppress,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.Suppress = parseBool(KeySuppress, v, c) },
	},
}

// ParseMask parses a comma separated list of channel indices such as "0,2,3".
// An empty string gives a nil mask.
func ParseMask(s string) ([]int, error) {
	s = strings.Replace(s, " ", "", -1)
	if s == "" {
		return nil, nil
	}
	var mask []int
	for _, e := range strings.Split(s, ",") {
		i, err := strconv.Atoi(e)
		if err != nil {
			return nil, fmt.Errorf("bad channel index %q: %w", e, err)
		}
		if i < 0 {
			return nil, fmt.Errorf("negative channel index %d", i)
		}
		mask = append(mask, i)
	}
	return mask, nil
}

func parseUint(n, v string, c *Config) uint {
	_v, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		c.Logger.Warning(fmt.Sprintf("expected unsigned int for param %s", n), "value", v)
	}
	return uint(_v)
}

func parseBool(n, v string, c *Config) (b bool) {
	switch strings.ToLower(v) {
	case "true":
		b = true
	case "false":
		b = false
	default:
		c.Logger.Warning(fmt.Sprintf("expect bool for param %s", n), "value", v)
	}
	return
}

// parseDuration accepts a Go duration string, or a bare number of seconds.
func parseDuration(n, v string, c *Config) time.Duration {
	d, err := time.ParseDuration(v)
	if err == nil {
		return d
	}
	s, err := strconv.ParseFloat(v, 64)
	if err != nil {
		c.Logger.Warning(fmt.Sprintf("expected duration for param %s", n), "value", v)
		return 0
	}
	return time.Duration(s * float64(time.Second))
}

func parseEnum(n, v string, enums map[string]uint8, c *Config) uint8 {
	_v, ok := enums[strings.ToLower(v)]
	if !ok {
		c.Logger.Warning(fmt.Sprintf("invalid value for %s param", n), "value", v)
	}
	return _v
}

func lessThanOrEqual(n string, v, cmp uint, c *Config, def uint) uint {
	if v <= cmp {
		c.LogInvalidField(n, def)
		return def
	}
	return v
}
