/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Common illegal/default values used by enums.
const (
	IllegalValue = -1
	IllegalName  = "unknown"
	IllegalDesc  = "unknown"
)

// BaseEnum represents a basic enum contract used by domain types.
type BaseEnum interface {
	IsValid() bool
	Number() int
	String() string
	Desc() string
	Name() string
}

// CallType classifies a CRM call. It is stored as its number in
// calls.call_type.
type CallType int

const (
	CallTypeInbound CallType = iota + 1
	CallTypeOutbound
	CallTypeMissed
	CallTypeVoicemail
	CallTypeConference
)

var _ BaseEnum = CallType(0)

var callTypeNames = map[CallType][2]string{
	CallTypeInbound:    {"inbound", "Inbound call"},
	CallTypeOutbound:   {"outbound", "Outbound call"},
	CallTypeMissed:     {"missed", "Missed call"},
	CallTypeVoicemail:  {"voicemail", "Voicemail"},
	CallTypeConference: {"conference", "Conference call"},
}

func (c CallType) IsValid() bool {
	_, ok := callTypeNames[c]
	return ok
}

func (c CallType) Number() int {
	if !c.IsValid() {
		return IllegalValue
	}
	return int(c)
}

func (c CallType) Name() string {
	if n, ok := callTypeNames[c]; ok {
		return n[0]
	}
	return IllegalName
}

func (c CallType) Desc() string {
	if n, ok := callTypeNames[c]; ok {
		return n[1]
	}
	return IllegalDesc
}

func (c CallType) String() string {
	return c.Name()
}

// CallTypes lists every valid call type in numeric order.
func CallTypes() []CallType {
	return []CallType{CallTypeInbound, CallTypeOutbound, CallTypeMissed, CallTypeVoicemail, CallTypeConference}
}

// ParseCallType accepts a call type name (case-insensitive) or its number.
func ParseCallType(s string) (CallType, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if c := CallType(n); c.IsValid() {
			return c, nil
		}
		return 0, fmt.Errorf("invalid call type %d", n)
	}
	for _, c := range CallTypes() {
		if strings.EqualFold(c.Name(), s) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("invalid call type %q", s)
}
