// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 events 把群聊过程中的事件（消息追加、Agent 失败、编排结束）
推送给进程内订阅者与外部消息系统。

# 核心类型

  - Event：带类型、群组名与时间戳的事件，JSON 编码后发布
  - Publisher：发布接口，Publish + Close
  - Hub：进程内按群组分发，供 websocket 推流订阅；慢订阅者丢弃事件
  - KafkaPublisher：通过 kafka-go Writer 写入 topic，key 为群组名
  - RedisPublisher：通过 cache.Manager 在每个群组的频道上 PUBLISH
  - Multi：同时发布到多个 Publisher
  - Observer：conversation.Observer 适配器，把编排回调转成事件
*/
package events
