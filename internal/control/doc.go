// Package control provides torque controllers for model rollouts.
//
// Controllers implement [dynamo.Controller]:
//
//   - [PID]: Proportional-Integral-Derivative on the wrapped angle error
//   - [Random]: uniform torque, mirroring the reference action space
//   - [ManualController]: fixed torque, settable between steps
//   - [None]: zero torque
//
// # Usage
//
//	pid := control.NewPID(10, 0.1, 2, 0, 0.05) // Kp, Ki, Kd, setpoint, dt
//	s := sim.New(m, pid)
package control
