// Package cmd defines the lynx command line.
package cmd
