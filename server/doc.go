// Copyright 2025 The vozpublica Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package server exposes the narrative analysis and search services over HTTP.
//
// All analysis routes accept JSON bodies on POST and answer with JSON. Dates
// are calendar days formatted YYYY-MM-DD. Failures are reported as
//
//	{"error": {"code": "...", "message": "..."}}
//
// with the status chosen from the error kind: invalid input is 400, embedding
// and explanation failures are 502 and retrieval failures are 503.
package server
