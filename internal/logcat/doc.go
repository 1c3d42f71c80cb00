// Package logcat runs an external log command and feeds its stdout to the
// lynx engine line by line.
//
// The default command is "adb logcat -v time". Any command that prints
// lines in the same format works, for example a remote shell or a replay
// script.
//
// The engine restarts reading by calling the Spawner for a new Source. Every
// Source carries its own run id in log records so restarts can be told
// apart.
package logcat
