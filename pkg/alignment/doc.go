// Package alignment decodes millepede alignment constants and turns them
// into rigid corrections for tracker volumes.
//
// A constant is identified by a packed integer key
//
//	id = half·10000 + type·1000 + dim·100 + sensor
//
// and its canonical name ("y3t_align", "rz12b_align") is the join key
// used to match it with the volume it perturbs.
package alignment
