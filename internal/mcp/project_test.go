package mcp

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProjectDetector_Rails(t *testing.T) {
	// Given: a Rails app with a lock file
	root := writeProject(t, map[string]string{
		"config/application.rb": "require_relative 'boot'\n\nmodule Storefront\n  class Application < Rails::Application\n  end\nend\n",
		"Gemfile":               "source 'https://rubygems.org'\ngem 'rails'\n",
		"Gemfile.lock":          "GEM\n  specs:\n    rack (3.0.8)\n    rails (7.1.3)\n      actionpack (= 7.1.3)\n",
	})

	// When: detecting
	info := NewProjectDetector(root, nil).Detect()

	// Then: the module and rails version are reported
	assert.Equal(t, "Storefront", info.Name)
	assert.Equal(t, "rails", info.Type)
	assert.Equal(t, "7.1.3", info.RailsVersion)
	assert.Equal(t, root, info.RootPath)
}

func TestProjectDetector_GemfileOnly(t *testing.T) {
	root := writeProject(t, map[string]string{"Gemfile": "gem 'sinatra'\n"})

	info := NewProjectDetector(root, nil).Detect()

	assert.Equal(t, filepath.Base(root), info.Name)
	assert.Equal(t, "ruby", info.Type)
	assert.Empty(t, info.RailsVersion)
}

func TestProjectDetector_GemfileWithLockedRails(t *testing.T) {
	root := writeProject(t, map[string]string{
		"Gemfile":      "gem 'rails'\n",
		"Gemfile.lock": "GEM\n  specs:\n    rails (6.1.7)\n",
	})

	info := NewProjectDetector(root, nil).Detect()

	assert.Equal(t, "rails", info.Type)
	assert.Equal(t, "6.1.7", info.RailsVersion)
}

func TestProjectDetector_Unknown(t *testing.T) {
	root := t.TempDir()

	info := NewProjectDetector(root, nil).Detect()

	assert.Equal(t, filepath.Base(root), info.Name)
	assert.Equal(t, "unknown", info.Type)
}
