package config

import "time"

// Base application details
const AppName = "proofsync"
const ConfigDirName = "proofsync"
const ThemesDirName = "themes"
const DefaultThemeFileName = "theme.toml"
const DefaultConfigFileName = "config.toml"
const DefaultLogFileName = "proofsync.log"
const MarkerDirName = "markers"

// UI Layout
const StatusBarHeight = 1

// Status Bar
const MessageTimeout = 4 * time.Second

// Session timing when the backend supplies none.
const DefaultInputDelay = 300 * time.Millisecond
const DefaultStepDelay = 200 * time.Millisecond

const DefaultTabWidth = 4
const DefaultScrollOff = 3
const SystemClipboard = true
