// Package hal holds the hosted hardware drivers: a simulated touch panel
// (implements sensor.Scanner) and binary output devices (implement
// actuator.Output): in memory, a sysfs-style value file, or a coil on a
// Modbus TCP relay module.
package hal
