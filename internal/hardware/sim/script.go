// Package sim provides scripted stand-ins for the card reader, camera and
// recognizer.  A YAML script drives a whole classroom run for development
// and tests.
package sim

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Script is a classroom run:
//
//	owners:
//	  - {name: Dr. Reyes, token: "9001", course_name: Systems, course_code: CS101}
//	attendees:
//	  - {name: Ada, token: "1001", face: ada}
//	taps:
//	  - {token: "1001", pause: 200ms}
//	  - {token: "9001"}
//	frames:
//	  - {faces: [ada]}
//	  - {fail: true}
//	exit_when_done: true
type Script struct {
	Owners       []OwnerSeed    `yaml:"owners"`
	Attendees    []AttendeeSeed `yaml:"attendees"`
	Taps         []Tap          `yaml:"taps"`
	Frames       []FrameSpec    `yaml:"frames"`
	FrameEvery   time.Duration  `yaml:"frame_every"`
	ExitWhenDone bool           `yaml:"exit_when_done"`
}

type OwnerSeed struct {
	Name       string `yaml:"name"`
	Token      string `yaml:"token"`
	CourseName string `yaml:"course_name"`
	CourseCode string `yaml:"course_code"`
}

// AttendeeSeed enrolls with two poses of Face.  Face defaults to Name.
type AttendeeSeed struct {
	Name  string `yaml:"name"`
	Token string `yaml:"token"`
	Face  string `yaml:"face"`
}

func (a AttendeeSeed) FaceLabel() string {
	if a.Face != "" {
		return a.Face
	}
	return a.Name
}

// Tap is delivered after waiting Pause.
type Tap struct {
	Token    string        `yaml:"token"`
	ModuleID string        `yaml:"module_id"`
	Pause    time.Duration `yaml:"pause"`
}

// FrameSpec lists the face labels visible in one frame.  Fail makes the
// capture itself fail.
type FrameSpec struct {
	Faces []string `yaml:"faces"`
	Fail  bool     `yaml:"fail"`
}

func ParseScript(b []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("sim script: %w", err)
	}
	for i, t := range s.Taps {
		if t.Token == "" {
			return nil, fmt.Errorf("sim script: tap %d has no token", i)
		}
	}
	return &s, nil
}

func LoadScript(path string) (*Script, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sim script: %w", err)
	}
	return ParseScript(b)
}
