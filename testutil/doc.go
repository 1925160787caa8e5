// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 agentroom 测试的共享工具和辅助函数。

# 概述

testutil 包为各包的单元测试提供统一的辅助能力，避免重复实现
相似的测试基础设施。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - Agent 目录: ScriptedDirectory 把脚本化 Agent 注册进 agent.Directory
  - 断言工具: AssertMessagesEqual / AssertSenders / AssertUniqueIDs /
    AssertEventuallyTrue
  - 数据工具: Senders / MustJSON / MustParseJSON / WaitFor / WaitForChannel

# 子包

  - testutil/mocks: ScriptedResponder、gomock 生成的 MockResponder、
    MockProvider（LLM Provider）与 MockGroupStore，均支持错误注入
  - testutil/fixtures: Agent 配置、对话片段与 LLM 响应（含投票回复）

# 使用示例

	alice := mocks.NewScriptedResponder("Alice").WithVoteFor("Bob")
	dir := testutil.ScriptedDirectory(t, alice)
	mgr := conversation.NewManager(persistence.NewMemoryGroupStore(), dir, conversation.DefaultManagerConfig())
*/
package testutil
