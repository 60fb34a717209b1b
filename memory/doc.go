// Copyright 2025 Poiesic Systems
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


// Package memory keeps per-user conversation memory in two tiers.
//
// The session tier holds the most recent exchanges and the long-term tier
// holds exchanges promoted for keeping. Each tier is a bounded FIFO list per
// user, persisted through a storage.MemoryRepository on every write.
//
// Past exchanges are matched to a new question with a rule cascade tuned for
// follow-up questions about financial reports: references such as "this" or
// "那个" score highest, followed by shared years, organisations, chart terms
// and domain terms, with a scaled word overlap as the fallback.
//
// Basic usage:
//
//	mgr, err := memory.NewManager(repo, memory.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	mc, err := mgr.BuildContext(ctx, "alice", "那个公司的利润呢？", 5, 0.1)
//	if mc.HasMemory {
//		prompt = mc.Text + "\n" + prompt
//	}
//	_, err = mgr.AddToSession(ctx, "alice", question, answer, nil)
package memory
