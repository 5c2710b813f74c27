// Package gattbrowser holds the types shared by the GATT browser: addresses,
// UUIDs, discovered services and characteristics, the Reporter that output
// flows through, logging and configuration options.
//
// A run connects to one peripheral, enumerates its primary services and the
// characteristics of each, then disconnects. The state machine lives in the
// gap and gatt packages, the event loop in browser, and the radio behind the
// browser.Transport interface.
package gattbrowser
