// Package platform talks to the operating system directly: native file
// dialogs through zenity and opening files with their default application.
package platform
