package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"careercoach/internal/errors"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher watches a set of files and calls onChange, debounced, after
// any of them is written, created or replaced.
type FileWatcher struct {
	mu sync.RWMutex

	name  string
	files []string

	lastModTime map[string]time.Time

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	reloadChan chan struct{}

	onChange func()
	logger   *errors.Logger

	running bool
}

// NewFileWatcher creates a watcher; name is only used in log lines
func NewFileWatcher(name string, files []string, debounceDelay time.Duration, onChange func(), logger *errors.Logger) *FileWatcher {
	if debounceDelay == 0 {
		debounceDelay = time.Second
	}

	var watched []string
	for _, f := range files {
		if f != "" {
			watched = append(watched, f)
		}
	}

	return &FileWatcher{
		name:          name,
		files:         watched,
		lastModTime:   make(map[string]time.Time),
		debounceDelay: debounceDelay,
		stopChan:      make(chan struct{}),
		reloadChan:    make(chan struct{}, 1),
		onChange:      onChange,
		logger:        logger,
	}
}

// Start begins watching the files
func (fw *FileWatcher) Start() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.running {
		return fmt.Errorf("%s watcher is already running", fw.name)
	}
	if len(fw.files) == 0 {
		return fmt.Errorf("%s watcher has no files to watch", fw.name)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	fw.fsWatcher = watcher

	for _, file := range fw.files {
		if stat, err := os.Stat(file); err == nil {
			fw.lastModTime[file] = stat.ModTime()
		}
		if err := fw.addFile(file); err != nil && fw.logger != nil {
			fw.logger.Warn("Failed to watch file", "watcher", fw.name, "file", file, "error", err)
		}
	}

	fw.running = true
	go fw.watchLoop()

	if fw.logger != nil {
		fw.logger.Info("File watcher started",
			"watcher", fw.name,
			"files", fw.files,
			"debounce_delay", fw.debounceDelay)
	}
	return nil
}

// Stop stops the watcher. It is safe to call more than once.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if !fw.running {
		return nil
	}

	close(fw.stopChan)
	if fw.debounceTimer != nil {
		fw.debounceTimer.Stop()
	}
	fw.running = false

	if err := fw.fsWatcher.Close(); err != nil {
		if fw.logger != nil {
			fw.logger.LogError(err, "Failed to close file system watcher", "watcher", fw.name)
		}
		return err
	}

	if fw.logger != nil {
		fw.logger.Info("File watcher stopped", "watcher", fw.name)
	}
	return nil
}

// IsRunning returns whether the watcher is currently running
func (fw *FileWatcher) IsRunning() bool {
	fw.mu.RLock()
	defer fw.mu.RUnlock()
	return fw.running
}

// addFile watches the file and its directory; the directory catches
// editors and secret mounts that replace files by rename
func (fw *FileWatcher) addFile(file string) error {
	dir := filepath.Dir(file)
	if err := fw.fsWatcher.Add(file); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to watch file %s: %w", file, err)
	}
	if err := fw.fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	return nil
}

func (fw *FileWatcher) watchLoop() {
	for {
		select {
		case event, ok := <-fw.fsWatcher.Events:
			if !ok {
				return
			}
			if fw.shouldProcessEvent(event) {
				fw.scheduleReload()
			}

		case err, ok := <-fw.fsWatcher.Errors:
			if !ok {
				return
			}
			if fw.logger != nil {
				fw.logger.LogError(err, "File watcher error", "watcher", fw.name)
			}

		case <-fw.reloadChan:
			if fw.hasAnyFileChanged() {
				if fw.logger != nil {
					fw.logger.Info("Watched files changed, reloading", "watcher", fw.name)
				}
				fw.onChange()
			}

		case <-fw.stopChan:
			return
		}
	}
}

func (fw *FileWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	isWatched := slices.ContainsFunc(fw.files, func(file string) bool {
		return event.Name == file || filepath.Base(event.Name) == filepath.Base(file)
	})
	if !isWatched {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

// hasFileChanged compares the file's modification time with the last one seen.
// Only called from watchLoop.
func (fw *FileWatcher) hasFileChanged(file string) bool {
	stat, err := os.Stat(file)
	if err != nil {
		if _, seen := fw.lastModTime[file]; seen && os.IsNotExist(err) {
			delete(fw.lastModTime, file)
			return true
		}
		return false
	}

	lastMod, seen := fw.lastModTime[file]
	if !seen || stat.ModTime().After(lastMod) {
		fw.lastModTime[file] = stat.ModTime()
		return true
	}
	return false
}

func (fw *FileWatcher) hasAnyFileChanged() bool {
	changed := false
	for _, file := range fw.files {
		// evaluate every file so all mod times are refreshed
		if fw.hasFileChanged(file) {
			changed = true
		}
	}
	return changed
}

// scheduleReload resets the debounce timer
func (fw *FileWatcher) scheduleReload() {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.debounceTimer != nil {
		fw.debounceTimer.Stop()
	}
	fw.debounceTimer = time.AfterFunc(fw.debounceDelay, func() {
		select {
		case fw.reloadChan <- struct{}{}:
		default:
		}
	})
}

// WatchPrompts reloads the store whenever a prompt file changes. It returns
// nil when no prompt files are configured.
func (ps *PromptStore) WatchPrompts(debounceDelay time.Duration, logger *errors.Logger) (*FileWatcher, error) {
	files := ps.Files()
	if len(files) == 0 {
		return nil, nil
	}

	fw := NewFileWatcher("prompts", files, debounceDelay, func() {
		if err := ps.Reload(); err != nil {
			logger.LogError(err, "Prompt reload failed, keeping previous prompts")
			return
		}
		logger.Info("Prompts reloaded", "files", len(files))
	}, logger)

	if err := fw.Start(); err != nil {
		return nil, err
	}
	return fw, nil
}
