package keywords

// stopWords are dropped during tokenization: function words, relative time
// words, vague quantifiers, and newsroom boilerplate.
var stopWords = []string{
	"的", "了", "在", "是", "我", "有", "和", "就", "不", "人", "都", "一", "一个",
	"上", "也", "很", "到", "说", "要", "去", "你", "会", "着", "没有", "看", "好",
	"自己", "这", "那", "什么", "可以", "这个", "时候", "现在", "知道", "来", "用",
	"过", "想", "应该", "还", "这样", "最", "大", "为", "以", "如果", "没", "多",
	"然后", "出", "比", "他", "两", "她", "其", "被", "此", "更", "加", "将", "已",
	"把", "从", "但", "与", "及", "对", "由", "等", "所", "而", "或",
	"今天", "昨天", "明天", "今年", "去年", "明年", "今日", "昨日", "明日",
	"几个", "一些", "很多", "不少", "大量", "少量", "部分", "全部", "所有",
	"因为", "所以", "虽然", "但是", "那么", "这么", "怎么", "为什么",
	"怎样", "哪里", "什么时候", "谁", "哪个", "多少", "怎么样", "可能",
	"记者", "报道", "消息", "新闻", "据悉", "了解", "表示", "认为", "指出", "强调",
	"发现", "显示", "证实", "透露", "宣布", "公布", "发布", "介绍", "解释", "说明",
	"the", "and", "for", "that", "with", "this", "from", "have", "has",
	"was", "were", "are", "will", "been", "but", "not", "you", "your",
	"his", "her", "its", "our", "they", "their", "who", "what", "when",
	"where", "why", "how", "all", "any", "can", "had", "more", "new",
	"news", "said", "says", "after", "about", "into", "over", "than",
}
